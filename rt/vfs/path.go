package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// Sep separates guest path components.
const Sep = "/"

// clean resolves p against cwd into an absolute, normalized guest path.
// ".." at the root stays at the root.
func clean(cwd, p string) string {
	if !strings.HasPrefix(p, Sep) {
		p = cwd + Sep + p
	}
	return path.Clean(p)
}

// storageName converts an absolute guest path to a Storage name.
func storageName(abs string) string {
	if abs == Sep {
		return "."
	}
	return strings.TrimPrefix(abs, Sep)
}

// resolve decodes p, resolves it against the current directory and returns
// the absolute guest path and the Storage name it maps to. With
// CaseInsensitive set, a name that does not exist exactly is matched
// component by component under Unicode case folding.
func (v *FS) resolve(p string) (abs, name string, err error) {
	if v.enc != nil {
		decoded, err := v.enc.NewDecoder().String(p)
		if err != nil {
			return "", "", fmt.Errorf("vfs: decode %q: %w", p, err)
		}
		p = decoded
	}
	abs = clean(v.Getwd(), p)
	name = storageName(abs)
	if !v.caseFold {
		return abs, name, nil
	}
	if _, err := v.storage.Stat(name); err == nil || !notFound(err) {
		return abs, name, nil
	}
	folded, err := v.fold(name)
	if err != nil {
		// report the name as given
		return abs, name, nil
	}
	return Sep + folded, folded, nil
}

// fold walks name one component at a time, replacing each with the
// directory entry that matches it under case folding.
func (v *FS) fold(name string) (string, error) {
	caser := cases.Fold()
	dir := "."
	for _, elem := range strings.Split(name, Sep) {
		entries, err := v.storage.ReadDir(dir)
		if err != nil {
			return "", err
		}
		want := caser.String(elem)
		match := ""
		for _, e := range entries {
			if e.Name() == elem {
				match = elem
				break
			}
			if match == "" && caser.String(e.Name()) == want {
				match = e.Name()
			}
		}
		if match == "" {
			return "", fs.ErrNotExist
		}
		dir = path.Join(dir, match)
	}
	return dir, nil
}

// wrap adds the guest path to a storage error and maps missing names to
// ErrNotFound.
func wrap(op, p string, err error) error {
	if err == nil {
		return nil
	}
	if notFound(err) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, p, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, p, err)
}
