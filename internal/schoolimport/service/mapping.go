package service

import (
	"strings"

	"sekolah-service/internal/fileio"
	"sekolah-service/internal/schoolimport/model"
	"sekolah-service/internal/utils"
)

// Ministry sheet layout, by column letter.
const (
	colNegeri      = "B"
	colPPD         = "C"
	colPeringkat   = "D"
	colJenis       = "E"
	colKod         = "F"
	colNama        = "G"
	colAlamat      = "H"
	colPoskod      = "I"
	colBandar      = "J"
	colTelefon     = "K"
	colFaks        = "L"
	colEmail       = "M"
	colLokasi      = "N"
	colBantuan     = "O"
	colMurid       = "P"
	colGuru        = "Q"
	colPrasekolah  = "R"
	colIntegrasi   = "S"
	colKoordinatX  = "T"
	colKoordinatY  = "U"
)

var headerTokens = map[string]bool{
	"KODSEKOLAH": true, "NAMASEKOLAH": true, "NEGERI": true, "PPD": true,
	"PERINGKAT": true, "JENIS": true, "ALAMATSURAT": true, "POSKODSURAT": true,
	"BANDARSURAT": true, "NOTELEFON": true, "NOFAX": true, "EMAIL": true,
	"LOKASI": true, "BANTUAN": true, "MURID": true, "GURU": true,
}

// looksLikeHeader catches repeated title rows inside the data range.
func looksLikeHeader(rec fileio.Record) bool {
	if strings.EqualFold(rec.Get(colKod), "KODSEKOLAH") {
		return true
	}
	cnt := 0
	for _, v := range rec {
		if headerTokens[strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v), " ", ""))] {
			cnt++
		}
	}
	return cnt >= 2
}

// filterRecords drops header rows and rows with neither code nor name.
func filterRecords(recs []fileio.Record) []fileio.Record {
	out := make([]fileio.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Get(colKod) == "" && rec.Get(colNama) == "" {
			continue
		}
		if looksLikeHeader(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// toSchool maps fixed columns to fields. Location values stay raw.
func toSchool(rec fileio.Record) model.School {
	return model.School{
		KodSekolah:  rec.Get(colKod),
		NamaSekolah: rec.Get(colNama),
		Negeri:      rec.Get(colNegeri),
		PPD:         rec.Get(colPPD),
		Peringkat:   normalizePeringkat(orDefault(rec.Get(colPeringkat), "Rendah")),
		Jenis:       rec.Get(colJenis),
		AlamatSurat: rec.Get(colAlamat),
		Poskod:      rec.Get(colPoskod),
		Bandar:      rec.Get(colBandar),
		NoTelefon:   rec.Get(colTelefon),
		NoFaks:      rec.Get(colFaks),
		Email:       rec.Get(colEmail),
		Lokasi:      orDefault(rec.Get(colLokasi), "Bandar"),
		KoordinatX:  utils.ParseCoordinate(rec.Get(colKoordinatX)),
		KoordinatY:  utils.ParseCoordinate(rec.Get(colKoordinatY)),
		JumlahMurid: utils.ParseCount(rec.Get(colMurid)),
		JumlahGuru:  utils.ParseCount(rec.Get(colGuru)),
		Prasekolah:  orDefault(rec.Get(colPrasekolah), "TIADA"),
		Integrasi:   orDefault(rec.Get(colIntegrasi), "TIADA"),
		Bantuan:     rec.Get(colBantuan),
	}
}

func normalizePeringkat(s string) string {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "rendah"):
		return "Rendah"
	case strings.Contains(l, "menengah"):
		return "Menengah"
	}
	return s
}
