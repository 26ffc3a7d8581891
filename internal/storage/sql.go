package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver registration.
	"modernc.org/sqlite"

	"github.com/fshasan/feedback-pulse/internal/models"
	"github.com/fshasan/feedback-pulse/migrations"
)

const selectColumns = `id, source, title, content, author, received_at, metadata,
	sentiment, sentiment_score, themes, value_score, urgency_score,
	is_urgent, is_meaningless, is_spam, reasoning`

var sortColumns = map[string]string{
	SortTimestamp:    "received_at",
	SortValueScore:   "value_score",
	SortUrgencyScore: "urgency_score",
	SortSentiment:    "sentiment",
}

// SQLite's built-in LOWER only folds ASCII; search uses this Unicode-aware
// function instead so results match MemoryRepository.
const sqliteFold = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(sqliteFold, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// SQLRepository implements Repository on SQLite or PostgreSQL
type SQLRepository struct {
	db      *sql.DB
	dialect string

	mu         sync.Mutex
	lastStored int64
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLite opens a SQLite database at path and runs pending migrations.
func NewSQLite(path string) (*SQLRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	return newSQLRepository(db, migrations.DialectSQLite)
}

// NewPostgres connects to PostgreSQL and runs pending migrations.
func NewPostgres(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return newSQLRepository(db, migrations.DialectPostgres)
}

func newSQLRepository(db *sql.DB, dialect string) (*SQLRepository, error) {
	if err := migrations.Run(db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLRepository{db: db, dialect: dialect}, nil
}

// Close closes the underlying database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func (r *SQLRepository) Save(ctx context.Context, record models.AnalyzedFeedback) error {
	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	themes := record.Analysis.Themes
	if themes == nil {
		themes = []string{}
	}
	themesJSON, err := json.Marshal(themes)
	if err != nil {
		return fmt.Errorf("marshal themes: %w", err)
	}

	a := record.Analysis
	_, err = r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO feedback (id, source, title, content, author, received_at, metadata,
			sentiment, sentiment_score, themes, value_score, urgency_score,
			is_urgent, is_meaningless, is_spam, reasoning, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			source = excluded.source, title = excluded.title, content = excluded.content,
			author = excluded.author, received_at = excluded.received_at, metadata = excluded.metadata,
			sentiment = excluded.sentiment, sentiment_score = excluded.sentiment_score,
			themes = excluded.themes, value_score = excluded.value_score,
			urgency_score = excluded.urgency_score, is_urgent = excluded.is_urgent,
			is_meaningless = excluded.is_meaningless, is_spam = excluded.is_spam,
			reasoning = excluded.reasoning, stored_at = excluded.stored_at`),
		record.ID, record.Source, record.Title, record.Content, record.Author,
		record.Timestamp.UnixMicro(), string(metaJSON),
		a.Sentiment, a.SentimentScore, string(themesJSON), a.ValueScore, a.UrgencyScore,
		boolToInt(a.IsUrgent), boolToInt(a.IsMeaningless), boolToInt(a.IsSpam), a.Reasoning,
		r.nextStoredAt(),
	)
	if err != nil {
		return fmt.Errorf("insert feedback %s: %w", record.ID, err)
	}
	return nil
}

func (r *SQLRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM feedback WHERE id = ?`), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check feedback %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLRepository) List(ctx context.Context, query Query) (*Page, error) {
	q := query.Normalize()

	var where []string
	var args []interface{}
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.Sentiment != "" {
		where = append(where, "sentiment = ?")
		args = append(args, q.Sentiment)
	}
	if q.Search != "" {
		fold := "LOWER"
		if r.dialect == migrations.DialectSQLite {
			fold = sqliteFold
		}
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		where = append(where, fmt.Sprintf(`(%[1]s(title) LIKE ? ESCAPE '\' OR %[1]s(content) LIKE ? ESCAPE '\')`, fold))
		args = append(args, pattern, pattern)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.rebind("SELECT COUNT(*) FROM feedback "+whereSQL), args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}

	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	dataSQL := fmt.Sprintf("SELECT %s FROM feedback %s ORDER BY %s %s, stored_at DESC LIMIT ? OFFSET ?",
		selectColumns, whereSQL, sortColumns[q.SortBy], dir)

	rows, err := r.db.QueryContext(ctx, r.rebind(dataSQL), append(args, q.Limit, q.offset())...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return newPage(records, q, total), nil
}

func (r *SQLRepository) All(ctx context.Context) ([]models.AnalyzedFeedback, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM feedback ORDER BY stored_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (r *SQLRepository) BySource(ctx context.Context, source string) ([]models.AnalyzedFeedback, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind("SELECT "+selectColumns+" FROM feedback WHERE source = ? ORDER BY stored_at DESC"), source)
	if err != nil {
		return nil, fmt.Errorf("query feedback by source: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// nextStoredAt is strictly increasing so that save order is total.
func (r *SQLRepository) nextStoredAt() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixNano()
	if now <= r.lastStored {
		now = r.lastStored + 1
	}
	r.lastStored = now
	return now
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != migrations.DialectPostgres {
		return query
	}

	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func scanRecords(rows *sql.Rows) ([]models.AnalyzedFeedback, error) {
	records := []models.AnalyzedFeedback{}
	for rows.Next() {
		var (
			rec                             models.AnalyzedFeedback
			receivedAt                      int64
			metaJSON, themesJSON            string
			isUrgent, isMeaningless, isSpam int
		)
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Title, &rec.Content, &rec.Author, &receivedAt, &metaJSON,
			&rec.Analysis.Sentiment, &rec.Analysis.SentimentScore, &themesJSON,
			&rec.Analysis.ValueScore, &rec.Analysis.UrgencyScore,
			&isUrgent, &isMeaningless, &isSpam, &rec.Analysis.Reasoning,
		); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}

		rec.Timestamp = time.UnixMicro(receivedAt).UTC()
		rec.Analysis.IsUrgent = isUrgent != 0
		rec.Analysis.IsMeaningless = isMeaningless != 0
		rec.Analysis.IsSpam = isSpam != 0

		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(themesJSON), &rec.Analysis.Themes); err != nil {
			return nil, fmt.Errorf("decode themes of %s: %w", rec.ID, err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return records, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
