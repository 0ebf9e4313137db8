package types

import (
	"time"
)

type AssetType string

const (
	AssetTypeCrypto AssetType = "CRYPTO"
	AssetTypeIndex  AssetType = "INDEX"
	AssetTypeEtf    AssetType = "ETF"
)

type Asset struct {
	Id         int       `json:"id"`
	Ticker     string    `json:"ticker"`
	Name       string    `json:"name"`
	Type       AssetType `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
