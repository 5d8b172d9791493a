package config

import (
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir - стандартный путь Docker Secrets. Переменная, чтобы тесты могли её подменить.
var SecretsDir = "/run/secrets"

// ReadSecretOrEnv читает секрет из файла SecretsDir/<name>, а если файла нет
// или он пуст, берёт первое непустое значение из перечисленных переменных окружения.
func ReadSecretOrEnv(secretName string, envKeys ...string) string {
	if data, err := os.ReadFile(filepath.Join(SecretsDir, secretName)); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret
		}
	}
	for _, key := range envKeys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
