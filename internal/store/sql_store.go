package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailnexy/internal/model"
)

// SQLStore is a gorm.io/gorm-backed Store, usable with either the embedded
// SQLite dialector or the remote Postgres dialector — the same "two
// dialectors under one ORM" shape as themadorg-madmail's go.mod, generalizing
// the teacher's postgres-only config.ConnectDB into a backend chosen by
// config.
type SQLStore struct {
	db *gorm.DB
}

// OpenEmbedded opens (and migrates) a SQLite-backed store at path.
func OpenEmbedded(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open embedded store: %w", err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("migrate embedded store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// OpenRemote opens (and migrates) a Postgres-backed store using dsn.
func OpenRemote(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, fmt.Errorf("migrate remote store: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Lookup(ctx context.Context, normalizedEmail string) (model.VerificationResult, bool, error) {
	var r row
	err := s.db.WithContext(ctx).Where("normalized = ?", normalizedEmail).First(&r).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.VerificationResult{}, false, nil
		}
		return model.VerificationResult{}, false, err
	}
	return fromRow(r), true, nil
}

func (s *SQLStore) Upsert(ctx context.Context, result model.VerificationResult) error {
	r := toRow(result)
	return s.db.WithContext(ctx).Save(&r).Error
}

// UpsertBatch writes results in fixed-size transactional chunks, matching
// original_source/store/duckdb_io.py's write_results_batch behavior
// (rollback the whole chunk on any failure within it).
func (s *SQLStore) UpsertBatch(ctx context.Context, results []model.VerificationResult) (int, error) {
	const chunkSize = 1000
	written := 0

	for i := 0; i < len(results); i += chunkSize {
		end := i + chunkSize
		if end > len(results) {
			end = len(results)
		}
		chunk := results[i:end]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, result := range chunk {
				r := toRow(result)
				if err := tx.Save(&r).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return written, err
		}
		written += len(chunk)
	}

	return written, nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	stats := Stats{ByReachability: make(map[model.Reachability]int64)}

	if err := db.Model(&row{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	var byReach []struct {
		Reachability string
		Count        int64
	}
	if err := db.Model(&row{}).Select("reachability, count(*) as count").Group("reachability").Scan(&byReach).Error; err != nil {
		return stats, err
	}
	for _, r := range byReach {
		stats.ByReachability[model.Reachability(r.Reachability)] = r.Count
	}

	if err := db.Model(&row{}).Where("is_catch_all = ?", true).Count(&stats.CatchAllCount).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&row{}).Where("is_disposable = ?", true).Count(&stats.DisposableCount).Error; err != nil {
		return stats, err
	}

	var topDomains []struct {
		Domain string
		Count  int64
	}
	if err := db.Model(&row{}).Select("domain, count(*) as count").Group("domain").Order("count desc").Limit(20).Scan(&topDomains).Error; err != nil {
		return stats, err
	}
	for _, d := range topDomains {
		stats.TopDomains = append(stats.TopDomains, DomainCount{Domain: d.Domain, Count: d.Count})
	}

	return stats, nil
}

func (s *SQLStore) Query(ctx context.Context, filter QueryFilter) (QueryPage, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := s.db.WithContext(ctx).Model(&row{}).Order("verified_at desc, email asc").Limit(limit + 1)
	if filter.Reachability != "" {
		q = q.Where("reachability = ?", string(filter.Reachability))
	}
	if filter.Domain != "" {
		q = q.Where("domain = ?", filter.Domain)
	}
	if filter.Cursor != "" {
		decoded, err := decodeCursor(filter.Cursor)
		if err != nil {
			return QueryPage{}, fmt.Errorf("invalid cursor: %w", err)
		}
		q = q.Where("verified_at < ? OR (verified_at = ? AND email > ?)", decoded.VerifiedAt, decoded.VerifiedAt, decoded.Email)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return QueryPage{}, err
	}

	page := QueryPage{}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, r := range rows {
		page.Results = append(page.Results, fromRow(r))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		cursor, err := encodeCursor(cursorPosition{VerifiedAt: last.VerifiedAt, Email: last.Email})
		if err != nil {
			return QueryPage{}, err
		}
		page.NextCursor = cursor
	}

	return page, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
