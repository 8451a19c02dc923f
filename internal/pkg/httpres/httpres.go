// Package httpres maps service errors onto JSON HTTP responses.
package httpres

import (
	"github.com/farehub/card-service/internal/pkg/apperr"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Serials []string `json:"serials,omitempty"`
}

func Error(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), errorBody{
		Error:   err.Error(),
		Kind:    string(apperr.KindOf(err)),
		Serials: apperr.SerialsOf(err),
	})
}

type listBody struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
}

func List(c *gin.Context, status int, items interface{}, total, page int) {
	c.JSON(status, listBody{Items: items, Total: total, Page: page})
}
