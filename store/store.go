// Package store implements persistence for clients, test cases,
// conversations, and knowledge documents on SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aiqalab/redteam-console/models"
)

// Store manages all persisted state in a single SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read/write behavior; every scheduler
	// goroutine writes its own conversation rows.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ai_clients (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			category              TEXT NOT NULL,
			prompt                TEXT NOT NULL DEFAULT '',
			max_messages          INTEGER NOT NULL DEFAULT 10,
			use_random_generation INTEGER NOT NULL DEFAULT 0,
			created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS test_cases (
			id              TEXT PRIMARY KEY,
			attack_type     TEXT NOT NULL,
			category        TEXT NOT NULL,
			test_prompt     TEXT NOT NULL,
			expected_result TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_test_cases_category
			ON test_cases(category);

		CREATE TABLE IF NOT EXISTS ai_client_test_cases (
			id           TEXT PRIMARY KEY,
			ai_client_id TEXT NOT NULL,
			test_case_id TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (ai_client_id) REFERENCES ai_clients(id),
			FOREIGN KEY (test_case_id) REFERENCES test_cases(id)
		);

		CREATE INDEX IF NOT EXISTS idx_client_test_cases_client
			ON ai_client_test_cases(ai_client_id);

		CREATE TABLE IF NOT EXISTS conversations (
			id               TEXT PRIMARY KEY,
			ai_client_id     TEXT NOT NULL DEFAULT '',
			test_case_id     TEXT NOT NULL DEFAULT '',
			customer_message TEXT NOT NULL,
			service_response TEXT NOT NULL DEFAULT '',
			test_mode        TEXT NOT NULL,
			created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_client
			ON conversations(ai_client_id);

		CREATE TABLE IF NOT EXISTS knowledge_documents (
			id         TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			file_type  TEXT NOT NULL DEFAULT 'text/plain',
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Clients ---

// CreateClient inserts a client and links the given test cases in one
// transaction.
func (s *Store) CreateClient(c *models.Client, testCaseIDs []string) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO ai_clients (id, name, category, prompt, max_messages, use_random_generation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Category, c.Prompt, c.MaxMessages, c.UseRandomGeneration, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, tcID := range testCaseIDs {
		if _, err := tx.Exec(
			`INSERT INTO ai_client_test_cases (id, ai_client_id, test_case_id) VALUES (?, ?, ?)`,
			uuid.New().String(), c.ID, tcID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateClient updates a client's configuration and replaces its test-case
// links when testCaseIDs is non-nil.
func (s *Store) UpdateClient(c *models.Client, testCaseIDs []string) error {
	c.UpdatedAt = time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE ai_clients SET name = ?, category = ?, prompt = ?, max_messages = ?,
		        use_random_generation = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Category, c.Prompt, c.MaxMessages, c.UseRandomGeneration, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if testCaseIDs != nil {
		if _, err := tx.Exec(`DELETE FROM ai_client_test_cases WHERE ai_client_id = ?`, c.ID); err != nil {
			return err
		}
		for _, tcID := range testCaseIDs {
			if _, err := tx.Exec(
				`INSERT INTO ai_client_test_cases (id, ai_client_id, test_case_id) VALUES (?, ?, ?)`,
				uuid.New().String(), c.ID, tcID,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteClient removes a client and its test-case links.
func (s *Store) DeleteClient(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ai_client_test_cases WHERE ai_client_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM ai_clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// GetClient retrieves a single client with its linked test cases.
func (s *Store) GetClient(id string) (*models.Client, error) {
	row := s.db.QueryRow(
		`SELECT id, name, category, prompt, max_messages, use_random_generation, created_at, updated_at
		 FROM ai_clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if err != nil {
		return nil, err
	}

	testCases, err := s.ListClientTestCases(id)
	if err != nil {
		return nil, err
	}
	c.TestCases = testCases
	return c, nil
}

// ListClients returns all clients, newest first, each with its linked test cases.
func (s *Store) ListClients() ([]models.Client, error) {
	rows, err := s.db.Query(
		`SELECT id, name, category, prompt, max_messages, use_random_generation, created_at, updated_at
		 FROM ai_clients ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range clients {
		testCases, err := s.ListClientTestCases(clients[i].ID)
		if err != nil {
			return nil, err
		}
		clients[i].TestCases = testCases
	}
	return clients, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Prompt, &c.MaxMessages,
		&c.UseRandomGeneration, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClientTestCases returns the test cases linked to a client in link
// insertion order. Selection strategies depend on this order being stable.
func (s *Store) ListClientTestCases(clientID string) ([]models.TestCase, error) {
	rows, err := s.db.Query(
		`SELECT tc.id, tc.attack_type, tc.category, tc.test_prompt, tc.expected_result, tc.created_at, tc.updated_at
		 FROM ai_client_test_cases link
		 JOIN test_cases tc ON tc.id = link.test_case_id
		 WHERE link.ai_client_id = ?
		 ORDER BY link.created_at, link.id`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTestCases(rows)
}

// --- Test cases ---

// ListTestCases returns stored test cases, optionally filtered by category.
func (s *Store) ListTestCases(category string) ([]models.TestCase, error) {
	query := `SELECT id, attack_type, category, test_prompt, expected_result, created_at, updated_at
	          FROM test_cases`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTestCases(rows)
}

func collectTestCases(rows *sql.Rows) ([]models.TestCase, error) {
	var cases []models.TestCase
	for rows.Next() {
		var tc models.TestCase
		if err := rows.Scan(&tc.ID, &tc.AttackType, &tc.Category, &tc.TestPrompt,
			&tc.ExpectedResult, &tc.CreatedAt, &tc.UpdatedAt); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

// ListCategories returns the distinct test-case categories.
func (s *Store) ListCategories() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT category FROM test_cases ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ExistingPrompts returns the set of already stored test_prompt values.
// Import deduplication keys on exact prompt text.
func (s *Store) ExistingPrompts() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT test_prompt FROM test_cases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prompts := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		prompts[p] = true
	}
	return prompts, rows.Err()
}

// InsertTestCases inserts a batch of test cases in one transaction, assigning
// IDs and timestamps.
func (s *Store) InsertTestCases(cases []models.TestCase) error {
	if len(cases) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i := range cases {
		if cases[i].ID == "" {
			cases[i].ID = uuid.New().String()
		}
		cases[i].CreatedAt = now
		cases[i].UpdatedAt = now
		if _, err := tx.Exec(
			`INSERT INTO test_cases (id, attack_type, category, test_prompt, expected_result, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			cases[i].ID, cases[i].AttackType, cases[i].Category, cases[i].TestPrompt,
			cases[i].ExpectedResult, cases[i].CreatedAt, cases[i].UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// --- Conversations ---

// SaveConversation appends one complete exchange row. Earlier designs
// inserted a placeholder and updated the latest matching row afterwards;
// that is unsafe with concurrent writers sharing prompt text, so each
// exchange is written whole.
func (s *Store) SaveConversation(conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, ai_client_id, test_case_id, customer_message, service_response, test_mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.ClientID, conv.TestCaseID, conv.CustomerMessage,
		conv.ServiceResponse, conv.TestMode, conv.CreatedAt,
	)
	return err
}

// ConversationFilter narrows ListConversations results.
type ConversationFilter struct {
	ClientID string
	TestMode string
	Limit    int
	Offset   int
}

// ListConversations returns stored exchanges, newest first.
func (s *Store) ListConversations(f ConversationFilter) ([]models.Conversation, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if f.ClientID != "" {
		where += ` AND ai_client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.TestMode != "" {
		where += ` AND test_mode = ?`
		args = append(args, f.TestMode)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM conversations`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, ai_client_id, test_case_id, customer_message, service_response, test_mode, created_at
	          FROM conversations` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.ClientID, &c.TestCaseID, &c.CustomerMessage,
			&c.ServiceResponse, &c.TestMode, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		convs = append(convs, c)
	}
	return convs, total, rows.Err()
}

// --- Knowledge documents ---

// CreateDocument stores an uploaded plain-text document.
func (s *Store) CreateDocument(doc *models.KnowledgeDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.FileType == "" {
		doc.FileType = "text/plain"
	}
	_, err := s.db.Exec(
		`INSERT INTO knowledge_documents (id, filename, file_type, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.FileType, doc.Content, doc.CreatedAt,
	)
	return err
}

// ListDocuments returns all stored documents, newest first.
func (s *Store) ListDocuments() ([]models.KnowledgeDocument, error) {
	rows, err := s.db.Query(
		`SELECT id, filename, file_type, content, created_at
		 FROM knowledge_documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.KnowledgeDocument
	for rows.Next() {
		var d models.KnowledgeDocument
		if err := rows.Scan(&d.ID, &d.Filename, &d.FileType, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a stored document.
func (s *Store) DeleteDocument(id string) error {
	res, err := s.db.Exec(`DELETE FROM knowledge_documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
