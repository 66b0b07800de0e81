package models

import "time"

// Company is a tenant: its admins and workers share one task backlog.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
