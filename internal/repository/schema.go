package repository

// Schema definitions for the unicorn database.
// Compatible with both SQLite and PostgreSQL: boolean flags are INTEGER 0/1
// and dates are stored as ISO-8601 TEXT.

const schemaPlayers = `
CREATE TABLE IF NOT EXISTS players (
    player_id INTEGER PRIMARY KEY,
    full_name TEXT NOT NULL,
    team_id INTEGER,
    position TEXT,
    active INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_players_team ON players(team_id);
`

const schemaTeams = `
CREATE TABLE IF NOT EXISTS teams (
    team_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    abbrev TEXT NOT NULL
);
`

const schemaGames = `
CREATE TABLE IF NOT EXISTS games (
    game_id INTEGER PRIMARY KEY,
    game_date TEXT NOT NULL,
    venue_id INTEGER,
    season_year INTEGER NOT NULL,
    home_team_id INTEGER,
    away_team_id INTEGER
);

CREATE INDEX IF NOT EXISTS idx_games_date ON games(game_date);
CREATE INDEX IF NOT EXISTS idx_games_season ON games(season_year);
`

// schemaPitchFacts is the pitch-level fact table. One row per pitch; pa_id
// orders plate appearances within a game for recency windows.
const schemaPitchFacts = `
CREATE TABLE IF NOT EXISTS pitch_facts (
    game_id INTEGER NOT NULL,
    pa_id INTEGER NOT NULL,
    pitch_no INTEGER NOT NULL,
    batter_id INTEGER NOT NULL,
    pitcher_id INTEGER NOT NULL,
    pa_outcome TEXT,
    count_str TEXT,
    pitch_type TEXT,
    result_pitch TEXT,
    is_in_zone INTEGER NOT NULL DEFAULT 0,
    is_hr INTEGER NOT NULL DEFAULT 0,
    is_barrel INTEGER NOT NULL DEFAULT 0,
    is_hard_hit INTEGER NOT NULL DEFAULT 0,
    launch_speed REAL,
    launch_angle REAL,
    xwoba REAL,
    PRIMARY KEY (game_id, pa_id, pitch_no)
);

CREATE INDEX IF NOT EXISTS idx_pitch_facts_batter ON pitch_facts(batter_id);
CREATE INDEX IF NOT EXISTS idx_pitch_facts_pitcher ON pitch_facts(pitcher_id);
`

// schemaPAFacts is the plate-appearance-level fact table. One row per PA.
const schemaPAFacts = `
CREATE TABLE IF NOT EXISTS pa_facts (
    game_id INTEGER NOT NULL,
    pa_id INTEGER NOT NULL,
    batter_id INTEGER NOT NULL,
    pitcher_id INTEGER NOT NULL,
    pa_outcome TEXT,
    is_hr INTEGER NOT NULL DEFAULT 0,
    is_barrel INTEGER NOT NULL DEFAULT 0,
    is_hard_hit INTEGER NOT NULL DEFAULT 0,
    launch_speed REAL,
    xwoba REAL,
    PRIMARY KEY (game_id, pa_id)
);

CREATE INDEX IF NOT EXISTS idx_pa_facts_batter ON pa_facts(batter_id);
CREATE INDEX IF NOT EXISTS idx_pa_facts_pitcher ON pa_facts(pitcher_id);
`

// schemaMarketContext holds per-season market multipliers produced by an
// external weighting process. Missing entities default to 1.0 at lookup.
const schemaMarketContext = `
CREATE TABLE IF NOT EXISTS team_market_context (
    season_year INTEGER NOT NULL,
    entity_id INTEGER NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    updated_at TIMESTAMP,
    PRIMARY KEY (season_year, entity_id)
);
`

const schemaPatternTemplates = `
CREATE TABLE IF NOT EXISTS pattern_templates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description_template TEXT,
    entity_type TEXT NOT NULL,
    base_table TEXT NOT NULL,
    category TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    filters TEXT,
    window_spec TEXT,
    metric TEXT NOT NULL,
    metric_expr TEXT,
    order_expr TEXT,
    sample_expr TEXT,
    order_direction TEXT NOT NULL DEFAULT 'desc',
    min_sample INTEGER NOT NULL DEFAULT 0,
    target_sample INTEGER NOT NULL DEFAULT 0,
    unicorn_weight REAL NOT NULL DEFAULT 1.0,
    public_weight REAL NOT NULL DEFAULT 0,
    complexity_score INTEGER NOT NULL DEFAULT 1,
    requires_count INTEGER NOT NULL DEFAULT 0,
    count_value TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pattern_templates_enabled ON pattern_templates(enabled);
`

const schemaPatternResults = `
CREATE TABLE IF NOT EXISTS pattern_results (
    run_date TEXT NOT NULL,
    pattern_id TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    metric_value REAL NOT NULL,
    sample_size INTEGER NOT NULL,
    raw_score REAL NOT NULL,
    adjusted_score REAL NOT NULL,
    final_score REAL NOT NULL,
    PRIMARY KEY (run_date, pattern_id, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_pattern_results_run ON pattern_results(run_date, pattern_id, rank);
`

const schemaTop50Daily = `
CREATE TABLE IF NOT EXISTS top50_daily (
    run_date TEXT NOT NULL,
    rank INTEGER NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id INTEGER NOT NULL,
    pattern_id TEXT NOT NULL,
    metric_value REAL NOT NULL,
    sample_size INTEGER NOT NULL,
    final_score REAL NOT NULL,
    description TEXT,
    PRIMARY KEY (run_date, rank)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_top50_daily_entity ON top50_daily(run_date, entity_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPlayers,
		schemaTeams,
		schemaGames,
		schemaPitchFacts,
		schemaPAFacts,
		schemaMarketContext,
		schemaPatternTemplates,
		schemaPatternResults,
		schemaTop50Daily,
	}
}
