package model

// ViewCounter 全局访问计数，整个服务生命周期内只有一行
type ViewCounter struct {
	ID         uint  `gorm:"primaryKey" json:"-"`
	TotalViews int64 `gorm:"column:total_views;default:0" json:"totalViews"`
}

func (ViewCounter) TableName() string {
	return "views"
}
