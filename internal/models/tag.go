package models

import "time"

const MaxTagNameLength = 30

type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type TagPatch struct {
	Name  Optional[string] `json:"name"`
	Color Optional[string] `json:"color"`
}

func (p TagPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Color.Set
}

type LinkTag struct {
	LinkID int64  `json:"link_id"`
	TagID  string `json:"tag_id"`
}

// TagColors фиксированная палитра цветов тегов
var TagColors = []string{
	"gray",
	"red",
	"orange",
	"amber",
	"yellow",
	"lime",
	"green",
	"emerald",
	"teal",
	"cyan",
	"sky",
	"blue",
	"indigo",
	"violet",
	"purple",
	"fuchsia",
	"pink",
	"rose",
}
