// Package files turns uploaded CSV files into table nodes.
package files

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/mydat/internal/dag"
	"github.com/leapstack-labs/mydat/internal/ui/features/common"
	"github.com/leapstack-labs/mydat/internal/ui/notifier"
	"github.com/leapstack-labs/mydat/internal/workspace"
	"github.com/leapstack-labs/mydat/pkg/core"
)

// UploadedSubkind marks tables created from an upload.
const UploadedSubkind = "uploaded"

// FormField is the multipart field carrying the file.
const FormField = "uploaded_file"

const maxUploadBytes = 32 << 20

var errEmptyFile = errors.New("file is empty")

// Handlers provides HTTP handlers for the files feature.
type Handlers struct {
	workspace *workspace.Workspace
	notifier  *notifier.Notifier
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ws *workspace.Workspace, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{workspace: ws, notifier: notify, logger: logger}
}

// Upload reads a CSV file, adds it as a table named after the file and returns the tables list.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "no user session", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile(FormField)
	if err != nil {
		http.Error(w, FormField+" is required", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	name := stem(header.Filename)
	if name == "" || header.Size == 0 {
		http.Error(w, "a named, non-empty file is required", http.StatusBadRequest)
		return
	}
	columns, rows, err := inspectCSV(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid CSV: %v", err), http.StatusBadRequest)
		return
	}

	node := core.Node{
		ID:      uuid.NewString(),
		Name:    name,
		Kind:    core.KindTable,
		Subkind: UploadedSubkind,
	}
	var tables []core.Node
	err = h.workspace.Update(r.Context(), userID, func(g *dag.Graph) error {
		g.AddNode(node)
		tables = g.NodesByKind(core.KindTable, "")
		return nil
	})
	if err != nil {
		h.logger.Error("failed to add uploaded table", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("table uploaded",
		"user_id", userID,
		"node_id", node.ID,
		"name", name,
		"columns", columns,
		"rows", rows)
	h.notifier.Broadcast(userID)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := common.FilesTable(tables).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render files table", "error", err)
	}
}

// stem is the file name without directories or extension.
func stem(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
}

// inspectCSV checks that r holds a header row and consistent records.
func inspectCSV(r io.Reader) (columns, rows int, err error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, 0, errEmptyFile
	}
	if err != nil {
		return 0, 0, err
	}
	columns = len(header)

	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return columns, rows, nil
		}
		if err != nil {
			return 0, 0, err
		}
		rows++
	}
}
