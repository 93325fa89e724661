package dto

import (
	"github.com/gin-gonic/gin"
	"khodam-go/pkg/utils"
)

// SubmitRequest 提交表单中的文本字段（photo 文件单独取）
type SubmitRequest struct {
	Name string `form:"name" binding:"required,max=255"`
}

// SubmitResponse 提交成功后的返回体
type SubmitResponse struct {
	Name     string `json:"name"`
	Khodam   string `json:"khodam"`
	PhotoURL string `json:"photoUrl"`
	ShareID  string `json:"shareId"`
}

// Validate 自定义验证逻辑
func (r *SubmitRequest) Validate() error {
	if err := utils.ValidateDisplayName(r.Name); err != nil {
		return gin.Error{
			Err:  err,
			Type: gin.ErrorTypeBind,
		}
	}
	return nil
}
