package database

const cardSchema = `
-- One row per print, replaced wholesale by bulk refresh
CREATE TABLE cards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL COLLATE NOCASE,
	set_code TEXT NOT NULL COLLATE NOCASE,
	collector_number TEXT NOT NULL,
	set_name TEXT COLLATE NOCASE,
	rarity TEXT,
	image_url TEXT,
	price_usd TEXT,
	price_usd_foil TEXT,
	payload TEXT,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_cards_name ON cards(name);
CREATE INDEX idx_cards_set_code ON cards(set_code);
CREATE INDEX idx_cards_collector_number ON cards(collector_number);
CREATE INDEX idx_cards_name_set_number ON cards(name, set_code, collector_number);

-- Bulk refresh loads here first, then swaps into cards in one transaction
CREATE TABLE cards_staging (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	set_code TEXT NOT NULL,
	collector_number TEXT NOT NULL,
	set_name TEXT,
	rarity TEXT,
	image_url TEXT,
	price_usd TEXT,
	price_usd_foil TEXT,
	payload TEXT,
	updated_at TIMESTAMP NOT NULL
);

-- Freshness of the last bulk snapshot per catalog type
CREATE TABLE bulk_metadata (
	data_type TEXT PRIMARY KEY,
	download_url TEXT,
	updated_at TIMESTAMP NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	version_token TEXT
);
`

// cardMigrations holds incremental schema changes; index i upgrades from version i
var cardMigrations = []string{
	"",
}
