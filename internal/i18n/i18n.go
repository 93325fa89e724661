package i18n

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// LocalizerContextKey 请求上下文中 Localizer 的键
const LocalizerContextKey = "i18n.Localizer"

// SupportedLanguages 是手动维护的支持语言列表
var SupportedLanguages []string

// InitI18n 初始化 i18n 包
func InitI18n(filePaths []string, defaultLang string) (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.MustParse(defaultLang))
	// 注册 TOML 解析器
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	SupportedLanguages = make([]string, 0)

	for _, filePath := range filePaths {
		file, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}

		// 解析文件名中的语言标签（如 en.toml -> "en"）
		lang := extractLanguageFromPath(filePath)
		SupportedLanguages = append(SupportedLanguages, lang)

		_, err = bundle.ParseMessageFileBytes(file, filePath)
		if err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func extractLanguageFromPath(filePath string) string {
	baseName := filepath.Base(filePath)
	return strings.TrimSuffix(baseName, filepath.Ext(baseName))
}

// T 按请求语言翻译消息；上下文中没有 Localizer 或消息缺失时退回 key 本身
func T(ctx context.Context, key string, data map[string]interface{}) string {
	localizer, ok := ctx.Value(LocalizerContextKey).(*i18n.Localizer)
	if !ok {
		return key
	}
	config := &i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	}
	msg, err := localizer.Localize(config)
	if err != nil {
		return key
	}
	return msg
}
