package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/benplehn/btc-sub000/types"
	"github.com/jackc/pgx/v5"
)

const getAssetByTicker = `SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1`

// GetAssetByTicker retrieves a types.Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	var (
		asset     types.Asset
		assetType string
	)
	err := db.db.QueryRow(ctx, getAssetByTicker, ticker).Scan(
		&asset.Id,
		&asset.Ticker,
		&asset.Name,
		&assetType,
		&asset.CreatedAt,
		&asset.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	asset.Type = types.AssetType(assetType)
	return &asset, nil
}
