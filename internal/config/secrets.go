package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SecretsDir каталог Docker secrets.
var SecretsDir = "/run/secrets"

// ReadSecret читает секрет из файла Docker secrets.
func ReadSecret(name string) (string, error) {
	path := filepath.Join(SecretsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return secret, nil
}

// secretOrEnv предпочитает файл секрета, иначе берет значение из окружения.
func secretOrEnv(name, fromEnv string) (string, error) {
	if secret, err := ReadSecret(name); err == nil {
		return secret, nil
	}
	if fromEnv != "" {
		return fromEnv, nil
	}
	return "", fmt.Errorf("секрет %s не задан ни файлом в %s, ни переменной окружения", name, SecretsDir)
}
