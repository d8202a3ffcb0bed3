package model

// DailyCounter backs daily-sequential document numbering (sale and return
// numbers). One row per (scope, day); incremented with an atomic upsert so two
// concurrent commits can never draw the same sequence value.
type DailyCounter struct {
	Scope string `gorm:"type:varchar(20);primaryKey" json:"scope"`
	Day   string `gorm:"type:varchar(8);primaryKey" json:"day"` // YYYYMMDD
	Value int64  `gorm:"type:bigint;not null;default:0" json:"value"`
}
