package dto

type CounterFilters struct {
	CategoryID string
	TypeID     string
	StationID  *string // nil = no filter; pointer to "" = head-office row only
	Page       int
	PageSize   int
}
