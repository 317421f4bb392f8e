package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Admin struct {
	UserID int64  `yaml:"user_id"`
	Name   string `yaml:"name"`
}

// AdminConfig 可操作取消/換貨審核與出貨狀態的帳號
type AdminConfig struct {
	Admins []Admin `yaml:"admins"`
}

func (a *AdminConfig) IsAdmin(userID int64) bool {
	if a == nil || userID <= 0 {
		return false
	}
	for _, admin := range a.Admins {
		if admin.UserID == userID {
			return true
		}
	}
	return false
}

// yaml path : docs/admin.yaml
func LoadAdminConfig(path string) (*AdminConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &AdminConfig{}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
