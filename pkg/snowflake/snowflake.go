// Package snowflake, mesaj ID'leri için 63-bit zaman sıralı ID üretir.
//
// Bit düzeni (MSB'den LSB'ye):
//
//	[41 bit: custom epoch'tan beri milisaniye | 10 bit: worker ID | 12 bit: sequence]
//
// 63 bit seçilmiştir ki ID signed int64'e ve SQLite INTEGER'a işaretsiz
// sığsın. Zaman üst bitlerde olduğu için ID'ler kronolojik sıralanır;
// mesaj pagination'ı ayrı bir timestamp kolonu olmadan ID üzerinden yapılır.
package snowflake

import (
	"sync"
	"time"
)

// Epoch, 2025-01-01T00:00:00Z (Unix ms). 41 bit milisaniye alanı bu
// epoch'tan itibaren ~69 yıl taşır.
const Epoch int64 = 1_735_689_600_000

const (
	workerBits   = 10
	sequenceBits = 12

	maxWorker   = (1 << workerBits) - 1   // 1023
	maxSequence = (1 << sequenceBits) - 1 // 4095

	workerShift    = sequenceBits
	timestampShift = workerBits + sequenceBits
)

// Generator, tek bir worker için ID üretir. Tüm alanlar mutex altındadır;
// Next() birden fazla goroutine'den güvenle çağrılır.
type Generator struct {
	mu       sync.Mutex
	workerID int64
	lastMs   int64
	sequence int64
	now      func() int64
}

// New, verilen worker ID ile bir Generator kurar.
// Worker ID 10 bit'e maskelenir; aynı anda çalışan her process farklı
// worker ID almalıdır, yoksa ID çakışması mümkündür.
func New(workerID int64) *Generator {
	return &Generator{
		workerID: workerID & maxWorker,
		now: func() int64 {
			return time.Now().UnixMilli()
		},
	}
}

// Next, kesin artan bir ID döner.
//
// Aynı milisaniye içinde sequence artar. Sequence 4095'i aşarsa bir
// sonraki milisaniyeye kadar spin edilir: ID üretimi asla geriye gitmez,
// asla duplicate üretmez. Saat geriye kayarsa lastMs korunur ve üretim
// aynı milisaniyede devam eder (yine monotonik kalır).
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		g.sequence++
		if g.sequence > maxSequence {
			// Sequence taştı: sonraki milisaniyeyi bekle.
			for ms <= g.lastMs {
				ms = g.now()
			}
			g.sequence = 0
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms

	return (ms-Epoch)<<timestampShift | g.workerID<<workerShift | g.sequence
}

// Timestamp, bir ID'nin üretildiği Unix milisaniyesini geri çıkarır.
func Timestamp(id int64) int64 {
	return (id >> timestampShift) + Epoch
}

// WorkerID, ID'nin worker alanını geri çıkarır.
func WorkerID(id int64) int64 {
	return (id >> workerShift) & maxWorker
}
