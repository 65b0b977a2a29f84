package api

import (
	"github.com/ssargent/mnistidx/pkg/codec"
	"github.com/ssargent/mnistidx/pkg/dataset"
	"github.com/ssargent/mnistidx/pkg/idx"
	"github.com/ssargent/mnistidx/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication
}

// RecordStore is the read side of storage.RecordStore used by the handlers.
type RecordStore interface {
	Manifest(split dataset.Split) (storage.Manifest, error)
	Get(split dataset.Split, index uint32) (codec.Record, error)
	Scan(split dataset.Split, from uint32, limit int, fn idx.RecordFunc) error
}

// RecordResponse is the JSON form of one record. Pixels are base64 encoded.
type RecordResponse struct {
	Index  uint32 `json:"index"`
	Label  uint8  `json:"label"`
	Rows   uint32 `json:"rows"`
	Cols   uint32 `json:"cols"`
	Pixels []byte `json:"pixels"`
	Image  string `json:"image"`
}

// RecordListResponse is one page of records.
type RecordListResponse struct {
	Split   string           `json:"split"`
	From    uint32           `json:"from"`
	Records []RecordResponse `json:"records"`
	Next    *uint32          `json:"next,omitempty"`
}
