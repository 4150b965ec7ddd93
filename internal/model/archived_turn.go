package model

// ArchivedTurn 对应于数据库中的 archived_turns 表，保存每一轮问答的审计副本。
type ArchivedTurn struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;index" json:"sessionId"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	InDomain  bool      `gorm:"not null;default:false" json:"inDomain"`
	Failed    bool      `gorm:"not null;default:false" json:"failed"`
	CreatedAt LocalTime `gorm:"not null" json:"createdAt"`
}

func (ArchivedTurn) TableName() string {
	return "archived_turns"
}
