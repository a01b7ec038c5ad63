package postgres

// schema is applied idempotently at startup. The JSONB columns mirror the
// nested parts of the business record (hours, gallery, reviews, menu).
const schema = `
CREATE TABLE IF NOT EXISTS cities (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS districts (
	id      BIGSERIAL PRIMARY KEY,
	city_id BIGINT NOT NULL REFERENCES cities(id),
	name    TEXT NOT NULL,
	slug    TEXT NOT NULL,
	UNIQUE (city_id, slug)
);

CREATE TABLE IF NOT EXISTS categories (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS scrape_jobs (
	id          BIGSERIAL PRIMARY KEY,
	category_id BIGINT NOT NULL REFERENCES categories(id),
	district_id BIGINT NOT NULL REFERENCES districts(id),
	status      TEXT NOT NULL DEFAULT 'PENDING',
	last_run    TIMESTAMPTZ,
	total_found INT NOT NULL DEFAULT 0,
	UNIQUE (category_id, district_id)
);

CREATE TABLE IF NOT EXISTS businesses (
	id                   BIGSERIAL PRIMARY KEY,
	fingerprint          TEXT NOT NULL UNIQUE,
	name                 TEXT NOT NULL,
	rating               DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count         INT NOT NULL DEFAULT 0,
	address              TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	website              TEXT NOT NULL DEFAULT '',
	price_info           TEXT NOT NULL DEFAULT '',
	price_reported_count INT NOT NULL DEFAULT 0,
	operating_hours      JSONB NOT NULL DEFAULT '[]',
	image_url            TEXT NOT NULL DEFAULT '',
	gallery_images       JSONB NOT NULL DEFAULT '[]',
	reviews              JSONB NOT NULL DEFAULT '[]',
	menu_items           JSONB NOT NULL DEFAULT '[]',
	detail_url           TEXT NOT NULL DEFAULT '',
	category_id          BIGINT NOT NULL REFERENCES categories(id),
	district_id          BIGINT NOT NULL REFERENCES districts(id),
	query                TEXT NOT NULL DEFAULT '',
	scraped_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_businesses_district ON businesses(district_id);
CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category_id);
CREATE INDEX IF NOT EXISTS idx_jobs_last_run ON scrape_jobs(last_run ASC NULLS FIRST, id ASC);
`
