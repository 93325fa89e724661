package model

// Share 分享记录：提交者名字 + 随机 khodam + CDN 图片地址 + 对外短标识
type Share struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Name     string `gorm:"size:255" json:"name"`
	Khodam   string `gorm:"size:255" json:"khodam"`
	PhotoURL string `gorm:"column:photo_url;type:text" json:"photoUrl"`
	ShareID  string `gorm:"column:share_id;uniqueIndex;size:16;not null" json:"shareId"`
}

func (Share) TableName() string {
	return "shares"
}
