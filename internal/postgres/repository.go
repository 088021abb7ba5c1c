package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pool-ladder/internal/config"
	"github.com/pool-ladder/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			ladder_name VARCHAR(32) NOT NULL,
			position INT NOT NULL,
			fargo_rate INT NOT NULL DEFAULT 0,
			wins INT NOT NULL DEFAULT 0,
			losses INT NOT NULL DEFAULT 0,
			immunity_until TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			has_unified_account BOOLEAN NOT NULL DEFAULT TRUE,
			smackback_eligible BOOLEAN NOT NULL DEFAULT FALSE,
			availability JSONB,
			locations JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id VARCHAR(64) PRIMARY KEY,
			ladder_name VARCHAR(32) NOT NULL,
			challenger_id VARCHAR(64) NOT NULL REFERENCES players(id),
			defender_id VARCHAR(64) NOT NULL REFERENCES players(id),
			proposer_id VARCHAR(64) NOT NULL,
			challenge_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			match_details JSONB,
			deadline TIMESTAMP NOT NULL,
			result JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			completed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			challenge_id VARCHAR(64) NOT NULL REFERENCES challenges(id),
			ladder_name VARCHAR(32) NOT NULL,
			challenger_id VARCHAR(64) NOT NULL,
			defender_id VARCHAR(64) NOT NULL,
			winner_id VARCHAR(64) NOT NULL,
			score VARCHAR(32) NOT NULL DEFAULT '',
			match_type VARCHAR(20) NOT NULL,
			venue VARCHAR(255) NOT NULL DEFAULT '',
			challenger_pos_before INT NOT NULL,
			challenger_pos_after INT NOT NULL,
			defender_pos_before INT NOT NULL,
			defender_pos_after INT NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS suggestion_feedback (
			id BIGSERIAL PRIMARY KEY,
			player_id VARCHAR(64) NOT NULL,
			suggested_id VARCHAR(64) NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_ladder ON players(ladder_name, position)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_status ON challenges(status, deadline)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_player ON challenges(challenger_id, defender_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_player ON matches(challenger_id, defender_id, completed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_player ON suggestion_feedback(player_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CreatePlayer inserts a new ladder player
func (r *Repository) CreatePlayer(ctx context.Context, p *domain.Player) error {
	availability, locations, err := marshalPlayerJSON(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO players (id, first_name, last_name, email, ladder_name, position,
			fargo_rate, wins, losses, immunity_until, is_active, has_unified_account,
			smackback_eligible, availability, locations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`
	now := time.Now()
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Email, string(p.Bracket), p.Position,
		p.FargoRate, p.Wins, p.Losses, p.ImmunityUntil, p.Active, p.UnifiedAccount,
		p.SmackBackEligible, availability, locations, now,
	)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

// ListPlayersByBracket retrieves a bracket's players ordered by position
func (r *Repository) ListPlayersByBracket(ctx context.Context, bracket domain.Bracket) ([]domain.Player, error) {
	query := playerSelect + ` WHERE ladder_name = $1 ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, query, string(bracket))
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, *p)
	}
	return players, nil
}

// UpdatePlayer persists mutable player fields
func (r *Repository) UpdatePlayer(ctx context.Context, p *domain.Player) error {
	availability, locations, err := marshalPlayerJSON(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE players
		SET first_name = $2, last_name = $3, email = $4, ladder_name = $5,
			position = $6, fargo_rate = $7, wins = $8, losses = $9,
			immunity_until = $10, is_active = $11, has_unified_account = $12,
			smackback_eligible = $13, availability = $14, locations = $15,
			updated_at = $16
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Email, string(p.Bracket),
		p.Position, p.FargoRate, p.Wins, p.Losses,
		p.ImmunityUntil, p.Active, p.UnifiedAccount,
		p.SmackBackEligible, availability, locations, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// BatchUpdateStandings persists position and record changes for a whole
// bracket after a ladder mutation
func (r *Repository) BatchUpdateStandings(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		UPDATE players
		SET ladder_name = $2, position = $3, wins = $4, losses = $5,
			immunity_until = $6, smackback_eligible = $7, updated_at = $8
		WHERE id = $1
	`
	now := time.Now()

	for i := range players {
		p := &players[i]
		batch.Queue(query, p.ID, string(p.Bracket), p.Position, p.Wins, p.Losses,
			p.ImmunityUntil, p.SmackBackEligible, now)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range players {
		_, err := br.Exec()
		if err != nil {
			return fmt.Errorf("batch updating standings: %w", err)
		}
	}
	return nil
}

// CreateChallenge inserts a new challenge
func (r *Repository) CreateChallenge(ctx context.Context, c *domain.Challenge) error {
	details, result, err := marshalChallengeJSON(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO challenges (id, ladder_name, challenger_id, defender_id, proposer_id,
			challenge_type, status, match_details, deadline, result,
			created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.pool.Exec(ctx, query,
		c.ID, string(c.Bracket), c.ChallengerID, c.DefenderID, c.ProposerID,
		string(c.Type), string(c.Status), details, c.Deadline, result,
		c.CreatedAt, c.UpdatedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("creating challenge: %w", err)
	}
	return nil
}

// GetChallenge retrieves a challenge by ID
func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	query := challengeSelect + ` WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, challengeID)
	c, err := scanChallenge(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("getting challenge: %w", err)
	}
	return c, nil
}

// UpdateChallenge persists the current challenge state
func (r *Repository) UpdateChallenge(ctx context.Context, c *domain.Challenge) error {
	details, result, err := marshalChallengeJSON(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE challenges
		SET proposer_id = $2, status = $3, match_details = $4, deadline = $5,
			result = $6, updated_at = $7, completed_at = $8
		WHERE id = $1
	`
	res, err := r.pool.Exec(ctx, query,
		c.ID, c.ProposerID, string(c.Status), details, c.Deadline,
		result, c.UpdatedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("updating challenge: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}

// ListChallengesByPlayer retrieves challenges where the player is a party,
// most recent first
func (r *Repository) ListChallengesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Challenge, error) {
	query := challengeSelect + `
		WHERE challenger_id = $1 OR defender_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing challenges: %w", err)
	}
	defer rows.Close()
	return collectChallenges(rows)
}

// ListOpenChallenges retrieves all challenges not in a terminal status
func (r *Repository) ListOpenChallenges(ctx context.Context) ([]domain.Challenge, error) {
	query := challengeSelect + `
		WHERE status IN ('pending', 'accepted', 'countered', 'confirmed')
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing open challenges: %w", err)
	}
	defer rows.Close()
	return collectChallenges(rows)
}

// ListOverdueChallenges retrieves awaiting-response challenges whose deadline
// has passed
func (r *Repository) ListOverdueChallenges(ctx context.Context, now time.Time) ([]domain.Challenge, error) {
	query := challengeSelect + `
		WHERE status IN ('pending', 'countered') AND deadline < $1
		ORDER BY deadline ASC
	`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("listing overdue challenges: %w", err)
	}
	defer rows.Close()
	return collectChallenges(rows)
}

// RecordMatch appends a completed match to the history
func (r *Repository) RecordMatch(ctx context.Context, m *domain.Match) error {
	query := `
		INSERT INTO matches (id, challenge_id, ladder_name, challenger_id, defender_id,
			winner_id, score, match_type, venue,
			challenger_pos_before, challenger_pos_after,
			defender_pos_before, defender_pos_after, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.ChallengeID, string(m.Bracket), m.ChallengerID, m.DefenderID,
		m.WinnerID, m.Score, string(m.MatchType), m.Venue,
		m.ChallengerPosBefore, m.ChallengerPosAfter,
		m.DefenderPosBefore, m.DefenderPosAfter, m.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("recording match: %w", err)
	}
	return nil
}

// ListMatchesByPlayer retrieves a player's match history, most recent first
func (r *Repository) ListMatchesByPlayer(ctx context.Context, playerID string, limit int) ([]domain.Match, error) {
	query := `
		SELECT id, challenge_id, ladder_name, challenger_id, defender_id,
			winner_id, score, match_type, venue,
			challenger_pos_before, challenger_pos_after,
			defender_pos_before, defender_pos_after, completed_at
		FROM matches
		WHERE challenger_id = $1 OR defender_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		var bracket, matchType string
		err := rows.Scan(
			&m.ID, &m.ChallengeID, &bracket, &m.ChallengerID, &m.DefenderID,
			&m.WinnerID, &m.Score, &matchType, &m.Venue,
			&m.ChallengerPosBefore, &m.ChallengerPosAfter,
			&m.DefenderPosBefore, &m.DefenderPosAfter, &m.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		m.Bracket = domain.Bracket(bracket)
		m.MatchType = domain.ChallengeType(matchType)
		matches = append(matches, m)
	}
	return matches, nil
}

// LastMatchByPlayer returns each player's most recent completed match time
func (r *Repository) LastMatchByPlayer(ctx context.Context) (map[string]time.Time, error) {
	query := `
		SELECT player_id, MAX(completed_at)
		FROM (
			SELECT challenger_id AS player_id, completed_at FROM matches
			UNION ALL
			SELECT defender_id AS player_id, completed_at FROM matches
		) participants
		GROUP BY player_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting last match times: %w", err)
	}
	defer rows.Close()

	times := make(map[string]time.Time)
	for rows.Next() {
		var playerID string
		var at time.Time
		if err := rows.Scan(&playerID, &at); err != nil {
			return nil, fmt.Errorf("scanning last match time: %w", err)
		}
		times[playerID] = at
	}
	return times, nil
}

// RecordSuggestionFeedback persists the outcome of a surfaced suggestion
func (r *Repository) RecordSuggestionFeedback(ctx context.Context, fb domain.SuggestionFeedback) error {
	query := `
		INSERT INTO suggestion_feedback (player_id, suggested_id, outcome, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query, fb.ChallengerID, fb.CandidateID, string(fb.Outcome), fb.RecordedAt)
	if err != nil {
		return fmt.Errorf("recording suggestion feedback: %w", err)
	}
	return nil
}

// ListSuggestionFeedback retrieves the most recent feedback entries, oldest
// first so replaying them rebuilds in-memory history in order
func (r *Repository) ListSuggestionFeedback(ctx context.Context, limit int) ([]domain.SuggestionFeedback, error) {
	query := `
		SELECT player_id, suggested_id, outcome, created_at
		FROM (
			SELECT player_id, suggested_id, outcome, created_at
			FROM suggestion_feedback
			ORDER BY created_at DESC
			LIMIT $1
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing suggestion feedback: %w", err)
	}
	defer rows.Close()

	var feedback []domain.SuggestionFeedback
	for rows.Next() {
		var fb domain.SuggestionFeedback
		var outcome string
		if err := rows.Scan(&fb.ChallengerID, &fb.CandidateID, &outcome, &fb.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning suggestion feedback: %w", err)
		}
		fb.Outcome = domain.SuggestionOutcome(outcome)
		feedback = append(feedback, fb)
	}
	return feedback, nil
}

const playerSelect = `
	SELECT id, first_name, last_name, email, ladder_name, position,
		fargo_rate, wins, losses, immunity_until, is_active, has_unified_account,
		smackback_eligible, availability, locations, created_at, updated_at
	FROM players
`

const challengeSelect = `
	SELECT id, ladder_name, challenger_id, defender_id, proposer_id,
		challenge_type, status, match_details, deadline, result,
		created_at, updated_at, completed_at
	FROM challenges
`

func marshalPlayerJSON(p *domain.Player) ([]byte, []byte, error) {
	var availability, locations []byte
	var err error
	if p.Availability != nil {
		availability, err = json.Marshal(p.Availability)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling availability: %w", err)
		}
	}
	if p.Locations != nil {
		locations, err = json.Marshal(p.Locations)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling locations: %w", err)
		}
	}
	return availability, locations, nil
}

func marshalChallengeJSON(c *domain.Challenge) ([]byte, []byte, error) {
	details, err := json.Marshal(c.Details)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling match details: %w", err)
	}
	var result []byte
	if c.Result != nil {
		result, err = json.Marshal(c.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling result: %w", err)
		}
	}
	return details, result, nil
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var bracket string
	var availability, locations []byte
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &bracket, &p.Position,
		&p.FargoRate, &p.Wins, &p.Losses, &p.ImmunityUntil, &p.Active, &p.UnifiedAccount,
		&p.SmackBackEligible, &availability, &locations, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Bracket = domain.Bracket(bracket)
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &p.Availability); err != nil {
			return nil, fmt.Errorf("unmarshaling availability: %w", err)
		}
	}
	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &p.Locations); err != nil {
			return nil, fmt.Errorf("unmarshaling locations: %w", err)
		}
	}
	return &p, nil
}

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	var bracket, challengeType, status string
	var details, result []byte
	err := row.Scan(
		&c.ID, &bracket, &c.ChallengerID, &c.DefenderID, &c.ProposerID,
		&challengeType, &status, &details, &c.Deadline, &result,
		&c.CreatedAt, &c.UpdatedAt, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Bracket = domain.Bracket(bracket)
	c.Type = domain.ChallengeType(challengeType)
	c.Status = domain.ChallengeStatus(status)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &c.Details); err != nil {
			return nil, fmt.Errorf("unmarshaling match details: %w", err)
		}
	}
	if len(result) > 0 {
		c.Result = &domain.Result{}
		if err := json.Unmarshal(result, c.Result); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
	}
	return &c, nil
}

func collectChallenges(rows pgx.Rows) ([]domain.Challenge, error) {
	var challenges []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, nil
}
