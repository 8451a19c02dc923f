package dto

import "github.com/farehub/card-service/internal/model"

type ActivationResult struct {
	Card     *model.Card     `json:"card"`
	Purchase *model.Purchase `json:"purchase"`
}
