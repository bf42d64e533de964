package store

import (
	"context"
	"fmt"
)

// MailboxConfig is a saved sweep configuration: which folder pair to sweep
// and where to drop the files.
type MailboxConfig struct {
	ID           int64  `json:"id"`
	User         string `json:"user"`
	SourceFolder string `json:"source_folder"`
	TargetFolder string `json:"target_folder"`
	SavePath     string `json:"save_path"`
}

func (s *Store) CreateMailboxConfig(ctx context.Context, c *MailboxConfig) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO mailbox_configs (user, source_folder, target_folder, save_path)
		VALUES (?, ?, ?, ?)
	`, c.User, c.SourceFolder, c.TargetFolder, c.SavePath)
	if err != nil {
		return fmt.Errorf("failed to insert mailbox config: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListMailboxConfigs(ctx context.Context) ([]MailboxConfig, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user, source_folder, target_folder, save_path
		FROM mailbox_configs ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox configs: %w", err)
	}
	defer rows.Close()

	var out []MailboxConfig
	for rows.Next() {
		var c MailboxConfig
		if err := rows.Scan(&c.ID, &c.User, &c.SourceFolder, &c.TargetFolder, &c.SavePath); err != nil {
			return nil, fmt.Errorf("failed to scan mailbox config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMailboxConfig(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM mailbox_configs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mailbox config: %w", err)
	}
	return requireRow(res)
}
