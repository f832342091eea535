package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/a3zone/server/internal/world"
	"github.com/jackc/pgx/v5"
)

// CharacterRepo stores each character as one JSONB document. Level, class
// and world are copied into columns for listing queries.
type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Load returns the saved character, or ErrNotFound.
func (r *CharacterRepo) Load(ctx context.Context, name string) (*world.Character, error) {
	var doc []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT doc FROM characters WHERE name = $1`, characterKey(name),
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character %s: %w", name, err)
	}
	c := &world.Character{}
	if err := json.Unmarshal(doc, c); err != nil {
		return nil, fmt.Errorf("decode character %s: %w", name, err)
	}
	c.Normalize()
	return c, nil
}

// Save upserts the character document.
func (r *CharacterRepo) Save(ctx context.Context, c *world.Character) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode character %s: %w", c.Name, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO characters (name, class, level, world_id, doc, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (name) DO UPDATE SET
		     class = EXCLUDED.class, level = EXCLUDED.level,
		     world_id = EXCLUDED.world_id, doc = EXCLUDED.doc, updated_at = NOW()`,
		characterKey(c.Name), c.Class, c.Level, c.WorldID, doc,
	)
	if err != nil {
		return fmt.Errorf("save character %s: %w", c.Name, err)
	}
	return nil
}

// Delete removes a character. Missing rows are not an error.
func (r *CharacterRepo) Delete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM characters WHERE name = $1`, characterKey(name))
	return err
}

// characterKey folds names so "Hero" and "hero" are the same character.
func characterKey(name string) string {
	return world.NameKey(name)
}
