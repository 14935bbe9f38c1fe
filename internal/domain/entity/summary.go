package entity

import "time"

// User is an operator known to the local store.
type User struct {
	ID        int64     `json:"id_user"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientSummary is the pending-invoice count of one user.
type ClientSummary struct {
	UserID   int64  `json:"id_user"`
	Username string `json:"username"`
	Pending  int    `json:"pending"`
}

// StoredInvoice is an invoice together with its storage metadata.
type StoredInvoice struct {
	ID        string
	Invoice   *Invoice
	DedupKey  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewItem is one row of the review list.
type ReviewItem struct {
	ID        string   `json:"id"`
	FileName  string   `json:"file_name"`
	CreatedAt string   `json:"created_at"`
	EntryTime string   `json:"entry_time"`
	Elapsed   string   `json:"elapsed"`
	UserName  string   `json:"user_name"`
	Row       *Invoice `json:"row"`
}
