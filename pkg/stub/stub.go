//Package stub caches serialized stage output on disk so re-runs over the same input skip the work.
package stub

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/basketball-analyzer/pkg/utils"
	jsoniter "github.com/json-iterator/go"
)

//map keys are sorted by this config, which keeps encodings byte-stable
var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct {
	Dir string
}

func New(dir string) (*Store, error) {
	if err := utils.EnsureDirs(dir); err != nil {
		return nil, fmt.Errorf("stub.New: %w", err)
	}
	return &Store{Dir: dir}, nil
}

//Key derives a cache key from a caller id and the input the cached value depends on
func Key(id string, input interface{}) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("stub.Key: %w", err)
	}
	sum := sha256.Sum256(b)
	return id + "-" + hex.EncodeToString(sum[:]), nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

//Load decodes the value stored under key into v. A missing entry returns false and no error
func (s *Store) Load(key string, v interface{}) (bool, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stub.Load: %w", err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("stub.Load: corrupt entry '%s': %w", key, err)
	}
	return true, nil
}

//Save writes v under key. The entry appears atomically or not at all
func (s *Store) Save(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("stub.Save: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("stub.Save: %w", err)
	}
	defer os.Remove(tmp.Name()) //no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("stub.Save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stub.Save: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("stub.Save: %w", err)
	}
	return nil
}
