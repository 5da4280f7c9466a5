package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultModel = "openai/gpt-4.1-mini"

// AgentConfig holds configuration for the AI agent.
type AgentConfig struct {
	// ClickHouse connection settings.
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// OpenRouter / LLM settings.
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent answers natural language questions about trading activity. It owns
// its own ClickHouse connection so ad-hoc analytics queries never contend
// with the trade log's insert path.
type Agent struct {
	llm    llms.Model
	db     *sql.DB
	logger *logrus.Logger
}

func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	// OpenRouter speaks the OpenAI wire protocol.
	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	return &Agent{llm: llm, db: db, logger: cfg.Logger}, nil
}

func (a *Agent) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// AskResult is the structured result of an Ask call.
type AskResult struct {
	SQL    string
	Answer string
}

// Ask runs the full loop: the LLM turns the question into a single SELECT
// over curves.trades, the query runs against ClickHouse, and a second LLM
// pass turns the rows into prose.
func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	query, err := a.translate(ctx, question)
	if err != nil {
		return nil, err
	}

	rowsJSON, err := a.queryJSON(ctx, query)
	if err != nil {
		return nil, err
	}

	answer, err := a.compose(ctx, question, query, rowsJSON)
	if err != nil {
		return nil, err
	}

	return &AskResult{SQL: query, Answer: answer}, nil
}

const translatePrompt = `You translate analytics questions into ClickHouse SQL.

The only table available is:
%s

Write exactly one SELECT statement and nothing else: no prose, no comments,
no markdown. Filter time ranges on the timestamp column. Prefer aggregates
(sum, count, avg) for volume and fee questions, and ORDER BY ... DESC with a
LIMIT for "top" or "largest" questions. Never write INSERT, UPDATE, DELETE,
DROP, ALTER, CREATE or TRUNCATE.

Question: %s`

func (a *Agent) translate(ctx context.Context, question string) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(
		ctx,
		a.llm,
		fmt.Sprintf(translatePrompt, tradesSchemaDescription, question),
		llms.WithMaxTokens(512),
	)
	if err != nil {
		return "", fmt.Errorf("translate question: %w", err)
	}

	query := extractSQL(reply)
	if err := checkSQL(query); err != nil {
		return "", err
	}

	a.logger.WithField("sql", query).Debug("translated question")
	return query, nil
}

// queryJSON runs the generated SELECT and encodes the result set as a JSON
// array of column-keyed objects for the summarisation pass.
func (a *Agent) queryJSON(ctx context.Context, query string) (string, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var records []map[string]any
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = cells[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}

	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}
	return string(b), nil
}

const composePrompt = `You summarise bonding curve trading data for an operator.

Question: %s

SQL executed:
%s

Rows as JSON (may be empty):
%s

If there are no rows, say no data was found. Otherwise answer briefly with
the key numbers. Amounts are raw base units: divide sol_amount and fee by
1e9 for SOL, token_amount by 1e6 for tokens. Do not echo the JSON.`

func (a *Agent) compose(ctx context.Context, question, query, rowsJSON string) (string, error) {
	reply, err := llms.GenerateFromSinglePrompt(
		ctx,
		a.llm,
		fmt.Sprintf(composePrompt, question, query, rowsJSON),
		llms.WithMaxTokens(512),
	)
	if err != nil {
		return "", fmt.Errorf("compose answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// extractSQL pulls the bare statement out of an LLM reply, tolerating code
// fences and a trailing semicolon.
func extractSQL(reply string) string {
	s := strings.TrimSpace(reply)
	if after, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimSpace(after)
		s = strings.TrimSpace(strings.TrimPrefix(s, "sql"))
	}
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

var writeKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE",
	"CREATE", "RENAME", "ATTACH", "DETACH",
}

// checkSQL enforces the read-only policy on generated statements: a single
// SELECT, no mutating keywords, targeting only curves.trades.
func checkSQL(query string) error {
	if query == "" {
		return fmt.Errorf("llm returned no sql")
	}

	upper := strings.ToUpper(query)
	if !strings.HasPrefix(upper, "SELECT") {
		return fmt.Errorf("generated statement is not a SELECT")
	}
	if strings.ContainsRune(query, ';') {
		return fmt.Errorf("generated statement contains multiple queries")
	}
	for _, kw := range writeKeywords {
		if strings.Contains(upper, kw+" ") {
			return fmt.Errorf("generated statement uses %s", kw)
		}
	}
	if !strings.Contains(upper, "FROM TRADES") && !strings.Contains(upper, "FROM CURVES.TRADES") {
		return fmt.Errorf("generated statement does not read curves.trades")
	}
	return nil
}
