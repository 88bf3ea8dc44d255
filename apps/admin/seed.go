package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	inmemdb "github.com/trezcool/scolarite/storage/database/inmem"
)

var ErrUnknownCollection = errors.New("unknown collection")

// seed resets the given collections, or all of them, to the default data.
// Plans are charged to teachers while seeding, so reseeding plans reseeds teachers too.
func (cli *commandLine) seed(keys []string) error {
	known := make(map[string]bool)
	for _, k := range cli.app.DB.Keys() {
		known[k] = true
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if !known[k] {
			return errors.Wrapf(ErrUnknownCollection, "%q", k)
		}
		want[k] = true
	}
	if want[inmemdb.KeyPlans] {
		want[inmemdb.KeyTeachers] = true
	}
	// keep load order
	var ordered []string
	for _, k := range cli.app.DB.Keys() {
		if want[k] {
			ordered = append(ordered, k)
		}
	}
	keys = ordered

	if err := cli.app.DB.Seed(keys...); err != nil {
		return errors.Wrap(err, "seeding")
	}
	if err := cli.app.Persist(context.Background()); err != nil {
		return err
	}
	if len(keys) == 0 {
		keys = cli.app.DB.Keys()
	}
	counts := cli.app.DB.Counts()
	for _, k := range keys {
		cli.printf("  %s: %d\n", k, counts[k])
	}
	return nil
}
