package service

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// PickKhodam 从配置的 khodam 清单中等概率抽取一个
func PickKhodam() (string, error) {
	listPath := viper.GetString("khodam.list_path")
	if listPath == "" {
		listPath = "khodam/list.txt"
	}
	return PickKhodamFrom(listPath)
}

// PickKhodamFrom 读取按行分隔的清单文件，过滤空行后随机抽取。
// 读取失败或清单为空时返回错误，由调用方中止本次提交。
func PickKhodamFrom(listPath string) (string, error) {
	data, err := os.ReadFile(listPath)
	if err != nil {
		return "", fmt.Errorf("read khodam list: %w", err)
	}

	var khodams []string
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			khodams = append(khodams, trimmed)
		}
	}

	if len(khodams) == 0 {
		return "", fmt.Errorf("khodam list is empty: %s", listPath)
	}

	// 包级 rand 内部有锁，并发提交下安全
	return khodams[rand.Intn(len(khodams))], nil
}
