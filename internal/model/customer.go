package model

import "time"

// CustomerViewModel is built per request for the customer display page and
// is never persisted. Form keys match the exported names used by the page.
type CustomerViewModel struct {
	CustomerID   int       `json:"customer_id" form:"CustomerId"`
	CustomerName string    `json:"customer_name" form:"CustomerName"`
	Email        string    `json:"email" form:"Email"`
	Balance      float64   `json:"balance" form:"Balance"`
	CreatedOn    time.Time `json:"created_on" form:"CreatedOn"`
}
