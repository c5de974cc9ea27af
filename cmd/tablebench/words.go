package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/edsrzf/mmap-go"
)

// wordFile is a newline-separated word list mapped read-only into memory.
type wordFile struct {
	f    *os.File
	data mmap.MMap // nil for an empty file
}

func openWords(path string) (*wordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat word file: %w", err), f.Close())
	}
	w := &wordFile{f: f}
	if info.Size() == 0 {
		return w, nil
	}

	fadviseSequential(int(f.Fd()), info.Size())
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap word file: %w", err), f.Close())
	}
	prefaultRead(data)
	w.data = data
	return w, nil
}

// Words returns up to n distinct words in file order, or all of them when n
// is not positive. Blank lines and trailing carriage returns are dropped.
// The returned strings are copies and stay valid after Close.
func (w *wordFile) Words(n int) []string {
	var words []string
	seen := make(map[string]struct{})
	rest := []byte(w.data)
	for len(rest) > 0 && (n <= 0 || len(words) < n) {
		var line []byte
		line, rest, _ = bytes.Cut(rest, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		if _, dup := seen[string(line)]; dup {
			continue
		}
		word := string(line)
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words
}

func (w *wordFile) Close() error {
	var unmapErr error
	if w.data != nil {
		unmapErr = w.data.Unmap()
		w.data = nil
	}
	return errors.Join(unmapErr, w.f.Close())
}

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz"

// generateKeys returns n distinct lowercase keys of 3 to 10 letters.
func generateKeys(rng *rand.Rand, n int) []string {
	keys := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	buf := make([]byte, 10)
	for len(keys) < n {
		l := 3 + rng.IntN(8)
		for i := range l {
			buf[i] = keyAlphabet[rng.IntN(len(keyAlphabet))]
		}
		k := string(buf[:l])
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}
