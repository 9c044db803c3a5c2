package model

import (
	"time"

	"sekolah-service/internal/normalize"
)

// Strategy decides how an upload reconciles with rows already stored.
type Strategy string

const (
	StrategyMerge         Strategy = "merge"
	StrategyDropAndImport Strategy = "drop_and_import"
	StrategyBackupAndDrop Strategy = "backup_and_drop"
)

// Strategies lists the accepted values in the order they are documented.
var Strategies = []Strategy{StrategyMerge, StrategyDropAndImport, StrategyBackupAndDrop}

func (s Strategy) Valid() bool {
	switch s {
	case StrategyMerge, StrategyDropAndImport, StrategyBackupAndDrop:
		return true
	}
	return false
}

// Destructive strategies clear the table before inserting.
func (s Strategy) Destructive() bool {
	return s == StrategyDropAndImport || s == StrategyBackupAndDrop
}

func (s Strategy) RequiresBackup() bool {
	return s == StrategyBackupAndDrop
}

// School is one row of the schools table, keyed by KodSekolah.
type School struct {
	KodSekolah  string   `json:"kod_sekolah"`
	NamaSekolah string   `json:"nama_sekolah"`
	Negeri      string   `json:"negeri"`
	PPD         string   `json:"ppd"`
	Peringkat   string   `json:"peringkat"`
	Jenis       string   `json:"jenis"`
	AlamatSurat string   `json:"alamat_surat"`
	Poskod      string   `json:"poskod"`
	Bandar      string   `json:"bandar"`
	NoTelefon   string   `json:"no_telefon"`
	NoFaks      string   `json:"no_faks"`
	Email       string   `json:"email"`
	Lokasi      string   `json:"lokasi"`
	KoordinatX  *float64 `json:"koordinat_x"`
	KoordinatY  *float64 `json:"koordinat_y"`
	JumlahMurid int      `json:"jumlah_murid"`
	JumlahGuru  int      `json:"jumlah_guru"`
	Prasekolah  string   `json:"prasekolah"`
	Integrasi   string   `json:"integrasi"`
	Bantuan     string   `json:"bantuan"`
	StatusClaim string   `json:"status_claim"`
	ImportBatch string   `json:"import_batch"`
}

// ImportBatch is the audit record of one execute run. A batch without
// CompletedAt has an unknown outcome.
type ImportBatch struct {
	ID          int64
	BatchID     string
	ActorID     *int64
	Filename    string
	Strategy    Strategy
	Total       int
	Imported    int
	Updated     int
	Failed      int
	Errors      []string
	Log         NormalizationLog
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (b ImportBatch) Complete() bool { return b.CompletedAt != nil }

// NormalizationLog holds the distinct raw -> canonical substitutions applied.
type NormalizationLog struct {
	Negeri map[string]string `json:"negeri"`
	Bandar map[string]string `json:"bandar"`
}

func NewNormalizationLog() NormalizationLog {
	return NormalizationLog{Negeri: map[string]string{}, Bandar: map[string]string{}}
}

// SampleRow is a normalized school shown next to its raw location values.
type SampleRow struct {
	School
	OriginalNegeri string `json:"original_negeri"`
	OriginalBandar string `json:"original_bandar"`
}

// Preview is what validate returns; storage is only read for the row count.
type Preview struct {
	TotalRows            int             `json:"totalRows"`
	Sample               []SampleRow     `json:"sample"`
	NormalizationStats   normalize.Stats `json:"normalizationStats"`
	Errors               []string        `json:"errors"`
	CurrentDatabaseTotal int             `json:"currentDatabaseTotal"`
}

// BackupInfo describes a snapshot written before an import.
type BackupInfo struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	RecordCount int    `json:"recordCount"`
	Size        int64  `json:"size"`
}

// Result is the summary of one execute run.
type Result struct {
	BatchID       string           `json:"batchId"`
	Strategy      Strategy         `json:"strategy"`
	Total         int              `json:"total"`
	Imported      int              `json:"imported"`
	Updated       int              `json:"updated"`
	Failed        int              `json:"failed"`
	Backup        *BackupInfo      `json:"backup"`
	Normalization NormalizationLog `json:"normalization"`
	Errors        []string         `json:"errors"`
	Cancelled     bool             `json:"cancelled,omitempty"`
}
