// Package db embeds the PostgreSQL schema of the Backend API.
package db

import (
	"embed"
	"io/fs"
	"path"
	"sort"

	"github.com/go-faster/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migration is one idempotent schema file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded schema files ordered by name.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "list migrations")
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := migrations.ReadFile(name)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		out = append(out, Migration{Name: path.Base(name), SQL: string(data)})
	}
	return out, nil
}
