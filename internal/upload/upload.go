// Package upload stores images sent as multipart form files.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/utilities"
)

// ImageField is the multipart file field carrying an image.
const ImageField = "image"

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

type Config struct {
	Dir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
}

func ConfigFromEnv() (Config, error) {
	return env.ParseAs[Config]()
}

// Form is a parsed multipart request: the first value of every text field
// and the stored name of the image file, "" when none was sent.
type Form struct {
	Fields map[string]string
	Image  string
}

// Store writes uploads under Config.Dir with KSUID file names.
type Store struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func NewStore(cfg Config, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{cfg: cfg, logger: logger}, nil
}

// ReadForm parses a multipart request and saves its image, if any.
func (s *Store) ReadForm(w http.ResponseWriter, r *http.Request) (Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxBytes); err != nil {
		return Form{}, apperror.Field("body", "invalid multipart form")
	}

	form := Form{Fields: map[string]string{}}
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			form.Fields[k] = vs[0]
		}
	}

	file, header, err := r.FormFile(ImageField)
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return Form{}, apperror.Field(ImageField, "invalid file")
	}
	defer file.Close()

	name, err := s.save(file, header)
	if err != nil {
		return Form{}, err
	}
	form.Image = name
	return form, nil
}

func (s *Store) save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExt[ext] {
		return "", apperror.Field(ImageField, "unsupported image type")
	}
	name := utilities.NewKSUID() + ext

	dst, err := os.Create(filepath.Join(s.cfg.Dir, name))
	if err != nil {
		s.logger.Errorw("create upload file failed", "err", err)
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.logger.Errorw("write upload file failed", "file", name, "err", err)
		_ = s.Remove(name)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	s.logger.Debugw("image stored", "file", name, "size", header.Size)
	return name, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *Store) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return apperror.Field(ImageField, "invalid file name")
	}
	err := os.Remove(filepath.Join(s.cfg.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnw("remove upload file failed", "file", name, "err", err)
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// Dir is where files are stored; the router serves it read-only.
func (s *Store) Dir() string { return s.cfg.Dir }
