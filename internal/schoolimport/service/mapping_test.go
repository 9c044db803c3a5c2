package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sekolah-service/internal/fileio"
)

func TestFilterRecords(t *testing.T) {
	recs := []fileio.Record{
		{"A": "BIL", "B": "NEGERI", "F": "KODSEKOLAH", "G": "NAMASEKOLAH"},
		{"A": "1", "B": "Perak", "F": "ABA0001", "G": "SK Satu"},
		{"A": "2", "B": "Perak"},
		{"B": "Negeri", "C": "PPD", "G": "Nama"},
		{"A": "3", "F": "", "G": "SK Tanpa Kod"},
	}
	got := filterRecords(recs)
	assert.Equal(t, []fileio.Record{recs[1], recs[4]}, got)
}

func TestToSchoolDefaults(t *testing.T) {
	s := toSchool(fileio.Record{
		"B": "Perak", "F": "ABA0001", "G": "SK Satu", "P": "1,234", "Q": "56",
		"T": "4.5975", "U": "0",
	})
	assert.Equal(t, "Rendah", s.Peringkat)
	assert.Equal(t, "Bandar", s.Lokasi)
	assert.Equal(t, "TIADA", s.Prasekolah)
	assert.Equal(t, "TIADA", s.Integrasi)
	assert.Equal(t, 1234, s.JumlahMurid)
	assert.Equal(t, 56, s.JumlahGuru)
	if assert.NotNil(t, s.KoordinatX) {
		assert.InDelta(t, 4.5975, *s.KoordinatX, 1e-9)
	}
	assert.Nil(t, s.KoordinatY)
}

func TestNormalizePeringkat(t *testing.T) {
	assert.Equal(t, "Rendah", normalizePeringkat("SEKOLAH RENDAH"))
	assert.Equal(t, "Menengah", normalizePeringkat("menengah atas"))
	assert.Equal(t, "Pendidikan Khas", normalizePeringkat("Pendidikan Khas"))
}
