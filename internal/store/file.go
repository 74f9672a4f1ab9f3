package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/commission-cli/internal/model"
)

// FileStore reads CRM table exports from disk. The format is picked from the
// file extension: .csv, .xlsx or .json. Columns are matched by header name.
type FileStore struct {
	contractsPath string
	projectsPath  string
}

// NewFile creates a FileStore over one export per table.
func NewFile(contractsPath, projectsPath string) *FileStore {
	return &FileStore{contractsPath: contractsPath, projectsPath: projectsPath}
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) FetchContracts(ctx context.Context) ([]model.ContractRecord, error) {
	recs, err := readTable(ctx, s.contractsPath)
	if err != nil {
		return nil, eris.Wrap(err, "file: read contracts")
	}
	out := make([]model.ContractRecord, 0, len(recs))
	for _, r := range recs {
		c := model.ContractRecord{
			ID:             r["id"],
			MonthlyPremium: parseNumber(r["prime_brute_mensuelle"]),
			RateYear1:      parseNumber(r["commissionnement_annee1"]),
			RateRecurring:  parseNumber(r["commissionnement_autres_annees"]),
			Status:         r["statut"],
			ProjectStatus:  r["statut_projet"],
			PostalCode:     r["code_postal"],
			City:           r["ville"],
			Carrier:        r["compagnie"],
		}
		link := model.ProjectLink{
			Salesperson:  r["commercial"],
			Origin:       r["origine"],
			CreatedAt:    parseDate(r["date_creation"]),
			SubscribedAt: parseDate(r["date_souscription"]),
		}
		if link.Salesperson != "" || link.Origin != "" || link.CreatedAt != nil ||
			link.SubscribedAt != nil || c.ProjectStatus != "" {
			c.Project = &link
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *FileStore) FetchProjects(ctx context.Context) ([]model.ProjectRecord, error) {
	recs, err := readTable(ctx, s.projectsPath)
	if err != nil {
		return nil, eris.Wrap(err, "file: read projects")
	}
	out := make([]model.ProjectRecord, 0, len(recs))
	for _, r := range recs {
		id := r["projet_id"]
		if id == "" {
			id = r["id"]
		}
		out = append(out, model.ProjectRecord{
			ID:          id,
			Salesperson: r["commercial"],
			Origin:      r["origine"],
			CreatedAt:   parseDate(r["date_creation"]),
			Status:      r["statut"],
			PostalCode:  r["code_postal"],
		})
	}
	return out, nil
}

// readTable loads an export as one map per data row, keyed by normalized
// header name.
func readTable(ctx context.Context, path string) ([]map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "csv: open file")
		}
		defer f.Close()
		return readCSV(ctx, f)
	case ".xlsx":
		return readXLSX(ctx, path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "json: open file")
		}
		defer f.Close()
		return readJSON(f)
	default:
		return nil, eris.Errorf("file: unsupported export format %q", filepath.Ext(path))
	}
}

// readCSV parses a CSV export. French spreadsheet exports use ';' as the
// separator, so the delimiter is sniffed from the header line.
func readCSV(ctx context.Context, r io.Reader) ([]map[string]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, eris.Wrap(err, "csv: peek header")
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	reader := csv.NewReader(br)
	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		header []string
		out    []map[string]string
	)
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if header == nil {
			header = normalizeHeader(record)
			continue
		}
		out = append(out, zipRow(header, record))
	}
	return out, nil
}

// readXLSX parses the first sheet of a workbook.
func readXLSX(ctx context.Context, path string) ([]map[string]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var (
		header []string
		out    []map[string]string
	)
	for _, row := range f.Sheets[0].Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "xlsx: context cancelled")
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if header == nil {
			header = normalizeHeader(cells)
			continue
		}
		out = append(out, zipRow(header, cells))
	}
	return out, nil
}

// readJSON parses an array of objects. Values may be strings, numbers or
// null; a nested "projet" object is flattened into the row.
func readJSON(r io.Reader) ([]map[string]string, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, eris.Wrap(err, "json: decode export")
	}
	out := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]string, len(obj))
		flattenJSON(row, obj)
		out = append(out, row)
	}
	return out, nil
}

func flattenJSON(dst map[string]string, obj map[string]any) {
	for k, v := range obj {
		key := normalizeKey(k)
		switch val := v.(type) {
		case nil:
		case string:
			dst[key] = strings.TrimSpace(val)
		case float64:
			dst[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			dst[key] = strconv.FormatBool(val)
		case map[string]any:
			if key == "projet" || key == "contact" {
				flattenJSON(dst, val)
			}
		}
	}
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = normalizeKey(c)
	}
	return out
}

// normalizeKey maps "Date Création" style headers to "date_creation".
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	s = strings.NewReplacer(
		" ", "_", "-", "_",
		"é", "e", "è", "e", "ê", "e", "à", "a", "ç", "c", "ô", "o", "î", "i", "û", "u",
	).Replace(s)
	return s
}

func zipRow(header, cells []string) map[string]string {
	row := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(cells) {
			row[h] = strings.TrimSpace(cells[i])
		}
	}
	return row
}
