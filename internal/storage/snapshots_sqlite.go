package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matsen/citegraph/internal/graph"
)

// ErrNoSnapshot is returned when the requested snapshot does not exist.
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotInfo describes a cached graph.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Nodes     int       `json:"nodes"`
	Links     int       `json:"links"`
}

// Snapshot is a cached graph and its description.
type Snapshot struct {
	SnapshotInfo
	Data *graph.Data `json:"data"`
}

func unixMilli() int64 {
	return time.Now().UnixMilli()
}

// SaveSnapshot stores the graph and returns the new snapshot's id.
// Node positions are stored so an offline render starts from them.
func (d *DB) SaveSnapshot(ctx context.Context, data *graph.Data) (string, error) {
	id := uuid.NewString()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, source, created_at, node_count, link_count)
		VALUES (?, ?, ?, ?, ?)
	`, id, d.source, d.now(), len(data.Nodes), len(data.Links))
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_nodes (snapshot_id, idx, id, type, name, title, year, journal, authors_json, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range data.Nodes {
		authors := n.Authors
		if authors == nil {
			authors = graph.StringList{}
		}
		authorsJSON, err := json.Marshal([]string(authors))
		if err != nil {
			return "", fmt.Errorf("encoding authors of %s: %w", n.ID, err)
		}
		_, err = nodeStmt.ExecContext(ctx, id, i, n.ID, string(n.Type), n.Name, n.Title,
			n.Year.String(), n.Journal, string(authorsJSON), n.X, n.Y)
		if err != nil {
			return "", fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_links (snapshot_id, idx, source_id, target_id, type)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("preparing link insert: %w", err)
	}
	defer linkStmt.Close()

	for i, l := range data.Links {
		_, err = linkStmt.ExecContext(ctx, id, i, l.Source.ID, l.Target.ID, string(l.Type))
		if err != nil {
			return "", fmt.Errorf("inserting link %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}
	return id, nil
}

// ListSnapshots returns up to limit snapshots, newest first. A limit of
// zero or less returns all of them.
func (d *DB) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	query := `
		SELECT id, source, created_at, node_count, link_count
		FROM snapshots
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		info, err := scanSnapshotInfo(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// LatestSnapshot returns the most recently saved snapshot.
func (d *DB) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	infos, err := d.ListSnapshots(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNoSnapshot
	}
	return d.loadSnapshot(ctx, infos[0])
}

// GetSnapshot returns the snapshot with the given id.
func (d *DB) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, source, created_at, node_count, link_count
		FROM snapshots WHERE id = ?
	`, id)
	info, err := scanSnapshotInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, id)
	}
	if err != nil {
		return nil, err
	}
	return d.loadSnapshot(ctx, info)
}

// Prune deletes all but the newest keep snapshots and returns how many
// were deleted.
func (d *DB) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM snapshots WHERE id NOT IN (
		SELECT id FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`
	for _, table := range []string{"snapshot_nodes", "snapshot_links"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE snapshot_id IN ("+stale+")", keep); err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshotInfo(s rowScanner) (SnapshotInfo, error) {
	var info SnapshotInfo
	var createdAt int64
	if err := s.Scan(&info.ID, &info.Source, &createdAt, &info.Nodes, &info.Links); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return info, err
		}
		return info, fmt.Errorf("scanning snapshot: %w", err)
	}
	info.CreatedAt = time.UnixMilli(createdAt).UTC()
	return info, nil
}

// loadSnapshot reads a snapshot's nodes and links and binds them.
func (d *DB) loadSnapshot(ctx context.Context, info SnapshotInfo) (*Snapshot, error) {
	nodes, err := d.loadNodes(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	links, err := d.loadLinks(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	if err := graph.Bind(nodes, links); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", info.ID, err)
	}
	return &Snapshot{SnapshotInfo: info, Data: &graph.Data{Nodes: nodes, Links: links}}, nil
}

func (d *DB) loadNodes(ctx context.Context, snapshotID string) ([]*graph.Node, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, type, name, title, year, journal, authors_json, x, y
		FROM snapshot_nodes WHERE snapshot_id = ? ORDER BY idx
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	for rows.Next() {
		var n graph.Node
		var nodeType, authorsJSON string
		var name, title, year, journal sql.NullString
		if err := rows.Scan(&n.ID, &nodeType, &name, &title, &year, &journal, &authorsJSON, &n.X, &n.Y); err != nil {
			return nil, fmt.Errorf("scanning snapshot node: %w", err)
		}
		n.Type = graph.NodeType(nodeType)
		n.Name, n.Title, n.Journal = name.String, title.String, journal.String
		n.Year = graph.FlexString(year.String)
		var authors []string
		if err := json.Unmarshal([]byte(authorsJSON), &authors); err != nil {
			return nil, fmt.Errorf("decoding authors of %s: %w", n.ID, err)
		}
		if len(authors) > 0 {
			n.Authors = authors
		}
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}

func (d *DB) loadLinks(ctx context.Context, snapshotID string) ([]*graph.Link, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT source_id, target_id, type
		FROM snapshot_links WHERE snapshot_id = ? ORDER BY idx
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot links: %w", err)
	}
	defer rows.Close()

	var links []*graph.Link
	for rows.Next() {
		var l graph.Link
		var linkType string
		if err := rows.Scan(&l.Source.ID, &l.Target.ID, &linkType); err != nil {
			return nil, fmt.Errorf("scanning snapshot link: %w", err)
		}
		l.Type = graph.LinkType(linkType)
		links = append(links, &l)
	}
	return links, rows.Err()
}
