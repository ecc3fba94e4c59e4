package internal

import "github.com/dustin/go-humanize"

// Avroファイルの構造を表すための一連の構造体
type (
	Structure struct {
		Path            string            `json:"path"`
		Schema          string            `json:"schema"`
		Codec           string            `json:"codec"`
		Sync            string            `json:"sync"`
		Meta            map[string]string `json:"meta,omitempty"`
		HeaderSize      int64             `json:"header_size"`
		Blocks          []*Block          `json:"blocks"`
		TotalRecords    int64             `json:"total_records"`
		MinBlockRecords int64             `json:"min_block_records"`
		MaxBlockRecords int64             `json:"max_block_records"`
		TotalSize       int64             `json:"total_size"`
		TotalSizeHuman  string            `json:"total_size_human"`
	}

	Block struct {
		Offset     int64 `json:"offset"`
		NumRecords int64 `json:"num_records"`
		Size       int64 `json:"size"` // 同期マーカーを含むブロック全体のバイト長
	}
)

func (s *Structure) setTotalSize(size int64) {
	s.TotalSize = size
	s.TotalSizeHuman = humanize.IBytes(uint64(size))
}
