package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresProvider loads company configuration from the live config
// tables written by the (out-of-scope) configuration service.
//
// Schema assumptions:
//   companies(company_id, name, trade, service_types JSONB, settings JSONB)
//   triage_cards(id, company_id, name, enabled, triggers JSONB,
//                synonyms JSONB, routing, opening_line, category,
//                follow_up_questions JSONB, steps JSONB, next_action)
//
// Only live rows are visible here; draft/archive versions never reach
// these tables.
type PostgresProvider struct {
	db *sql.DB
}

func NewPostgresProvider(db *sql.DB) (*PostgresProvider, error) {
	if db == nil {
		return nil, errors.New("tenant: db is nil")
	}
	return &PostgresProvider{db: db}, nil
}

func (p *PostgresProvider) LoadRuntimeConfig(ctx context.Context, companyID string) (RuntimeConfig, error) {
	if companyID == "" {
		return RuntimeConfig{}, errors.New("tenant: company_id required")
	}

	cfg := RuntimeConfig{CompanyID: companyID}

	var serviceTypes, settings []byte
	row := p.db.QueryRowContext(ctx,
		`SELECT name, trade, COALESCE(service_types, '[]'), COALESCE(settings, '{}')
		   FROM companies WHERE company_id = $1`, companyID)
	if err := row.Scan(&cfg.Name, &cfg.Trade, &serviceTypes, &settings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RuntimeConfig{}, ErrNotFound
		}
		return RuntimeConfig{}, fmt.Errorf("tenant: load company: %w", err)
	}
	if err := json.Unmarshal(serviceTypes, &cfg.ServiceTypes); err != nil {
		return RuntimeConfig{}, fmt.Errorf("tenant: service_types: %w", err)
	}
	if err := json.Unmarshal(settings, &cfg.Settings); err != nil {
		return RuntimeConfig{}, fmt.Errorf("tenant: settings: %w", err)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, enabled, COALESCE(triggers, '[]'), COALESCE(synonyms, '[]'),
		        routing, COALESCE(opening_line, ''), COALESCE(category, ''),
		        COALESCE(follow_up_questions, '[]'), COALESCE(steps, '[]'),
		        COALESCE(next_action, '')
		   FROM triage_cards WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("tenant: load cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var card Card
		var triggers, synonyms, questions, steps []byte
		var routing string
		if err := rows.Scan(&card.ID, &card.Name, &card.Enabled, &triggers, &synonyms,
			&routing, &card.OpeningLine, &card.Category, &questions, &steps, &card.NextAction); err != nil {
			return RuntimeConfig{}, fmt.Errorf("tenant: scan card: %w", err)
		}
		card.Routing = Routing(routing)
		if err := json.Unmarshal(triggers, &card.Triggers); err != nil {
			return RuntimeConfig{}, fmt.Errorf("tenant: card triggers: %w", err)
		}
		if err := json.Unmarshal(synonyms, &card.Synonyms); err != nil {
			return RuntimeConfig{}, fmt.Errorf("tenant: card synonyms: %w", err)
		}
		if err := json.Unmarshal(questions, &card.FollowUpQuestions); err != nil {
			return RuntimeConfig{}, fmt.Errorf("tenant: card questions: %w", err)
		}
		if err := json.Unmarshal(steps, &card.Steps); err != nil {
			return RuntimeConfig{}, fmt.Errorf("tenant: card steps: %w", err)
		}
		cfg.Cards = append(cfg.Cards, card)
	}
	if err := rows.Err(); err != nil {
		return RuntimeConfig{}, fmt.Errorf("tenant: cards: %w", err)
	}
	return cfg, nil
}
