package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/mydat/pkg/core"
)

// UserSummary describes one stored graph.
type UserSummary struct {
	UserID    string
	Nodes     int
	Edges     int
	UpdatedAt time.Time
}

// LoadGraph returns the graph stored for a user, or ErrNotFound.
func (s *Store) LoadGraph(ctx context.Context, userID string) (core.Snapshot, error) {
	if s.db == nil {
		return core.Snapshot{}, fmt.Errorf("database not opened")
	}

	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM users WHERE user_id = ?`), userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to look up user: %w", err)
	}

	nodes, err := s.loadNodes(ctx, userID)
	if err != nil {
		return core.Snapshot{}, err
	}
	edges, err := s.loadEdges(ctx, userID)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Nodes: nodes, Edges: edges}, nil
}

func (s *Store) loadNodes(ctx context.Context, userID string) ([]core.Node, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT node_id, name, kind, subkind FROM graph_nodes WHERE user_id = ? ORDER BY position`),
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []core.Node
	for rows.Next() {
		var n core.Node
		var kind string
		if err := rows.Scan(&n.ID, &n.Name, &kind, &n.Subkind); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if k, ok := core.ParseKind(kind); ok {
			n.Kind = k
		} else {
			n.RawKind = kind
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) loadEdges(ctx context.Context, userID string) ([]core.Edge, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT edge_id, source, target FROM graph_edges WHERE user_id = ? ORDER BY position`),
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []core.Edge
	for rows.Next() {
		var e core.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	return edges, nil
}

// SaveGraph replaces the stored graph of a user in one transaction.
func (s *Store) SaveGraph(ctx context.Context, userID string, snap core.Snapshot) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid graph for user %s: %w", userID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC().Unix()
	if _, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO users (user_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = excluded.updated_at`),
		userID, now, now); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM graph_edges WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM graph_nodes WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}

	for i, n := range snap.Nodes {
		if _, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO graph_nodes (user_id, node_id, position, name, kind, subkind) VALUES (?, ?, ?, ?, ?, ?)`),
			userID, n.ID, i, n.Name, n.KindLabel(), n.Subkind); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}
	for i, e := range snap.Edges {
		if _, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO graph_edges (user_id, edge_id, position, source, target) VALUES (?, ?, ?, ?, ?)`),
			userID, e.EdgeID(), i, e.Source, e.Target); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", e.EdgeID(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph: %w", err)
	}
	s.logger.Debug("graph saved", "user_id", userID, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return nil
}

// ListUsers returns every user with a stored graph, most recently updated first.
func (s *Store) ListUsers(ctx context.Context) ([]UserSummary, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_id, u.updated_at,
			(SELECT COUNT(*) FROM graph_nodes n WHERE n.user_id = u.user_id),
			(SELECT COUNT(*) FROM graph_edges e WHERE e.user_id = u.user_id)
		FROM users u
		ORDER BY u.updated_at DESC, u.user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		var updated int64
		if err := rows.Scan(&u.UserID, &updated, &u.Nodes, &u.Edges); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.UpdatedAt = time.Unix(updated, 0).UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}
