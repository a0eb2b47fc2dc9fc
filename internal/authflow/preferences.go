package authflow

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

const (
	keyRememberLogin = "remember_login"
	keySavedEmail    = "saved_email"
)

// FilePreferences keeps Remembered in a YAML file.
type FilePreferences struct {
	mu   sync.Mutex
	path string
}

func NewFilePreferences(path string) *FilePreferences {
	return &FilePreferences{path: path}
}

func (p *FilePreferences) load() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(p.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return v, nil
}

// Load returns the zero value when the file does not exist yet.
func (p *FilePreferences) Load(_ context.Context) (Remembered, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.load()
	if err != nil {
		return Remembered{}, err
	}

	return Remembered{
		RememberLogin: v.GetBool(keyRememberLogin),
		Email:         v.GetString(keySavedEmail),
	}, nil
}

func (p *FilePreferences) Save(_ context.Context, r Remembered) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.load()
	if err != nil {
		return err
	}

	v.Set(keyRememberLogin, r.RememberLogin)
	v.Set(keySavedEmail, r.Email)

	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return v.WriteConfigAs(p.path)
}
