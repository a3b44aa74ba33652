package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	ScrapeResponseMinLength = 8
	// MaxScrapeInfoHashes keeps a scrape request inside a single ethernet frame.
	MaxScrapeInfoHashes = 74

	scrapeEntryLength = 12
)

// ScrapeRequest only carries framing. Aggregating the answers of several trackers is left to the caller.
type ScrapeRequest struct {
	ConnectionID  uint64
	TransactionID uint32
	InfoHashes    [][20]byte
}

func (r *ScrapeRequest) Action() Action             { return Scrape }
func (r *ScrapeRequest) GetTransactionID() uint32   { return r.TransactionID }
func (r *ScrapeRequest) SetTransactionID(id uint32) { r.TransactionID = id }

func (r *ScrapeRequest) MarshalBinary() ([]byte, error) {
	if len(r.InfoHashes) == 0 || len(r.InfoHashes) > MaxScrapeInfoHashes {
		return nil, errors.Wrapf(ErrMalformedField, "scrape: %d infohashes, want 1 to %d", len(r.InfoHashes), MaxScrapeInfoHashes)
	}
	buf := make([]byte, requestHeaderLength+20*len(r.InfoHashes))
	putRequestHeader(buf, r.ConnectionID, Scrape, r.TransactionID)
	for i, infoHash := range r.InfoHashes {
		copy(buf[requestHeaderLength+20*i:], infoHash[:])
	}
	return buf, nil
}

func (r *ScrapeRequest) UnmarshalBinary(buf []byte) error {
	if err := minLength(Scrape, buf, requestHeaderLength+20); err != nil {
		return err
	}
	body := buf[requestHeaderLength:]
	if len(body)%20 != 0 || len(body)/20 > MaxScrapeInfoHashes {
		return errors.Wrapf(ErrMalformedField, "scrape: infohash list of %d bytes", len(body))
	}
	connectionID, action, transactionID := readRequestHeader(buf)
	if action != Scrape {
		return unexpectedAction(Scrape, action)
	}
	r.ConnectionID = connectionID
	r.TransactionID = transactionID
	r.InfoHashes = make([][20]byte, len(body)/20)
	for i := range r.InfoHashes {
		copy(r.InfoHashes[i][:], body[20*i:])
	}
	return nil
}

type ScrapeEntry struct {
	Seeders   uint32
	Completed uint32
	Leechers  uint32
}

// ScrapeResponse entries come in the order of the request infohashes.
type ScrapeResponse struct {
	TransactionID uint32
	Entries       []ScrapeEntry
}

func (r *ScrapeResponse) Action() Action           { return Scrape }
func (r *ScrapeResponse) GetTransactionID() uint32 { return r.TransactionID }

func (r *ScrapeResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ScrapeResponseMinLength+scrapeEntryLength*len(r.Entries))
	putResponseHeader(buf, Scrape, r.TransactionID)
	for i, e := range r.Entries {
		off := ScrapeResponseMinLength + scrapeEntryLength*i
		binary.BigEndian.PutUint32(buf[off:], e.Seeders)
		binary.BigEndian.PutUint32(buf[off+4:], e.Completed)
		binary.BigEndian.PutUint32(buf[off+8:], e.Leechers)
	}
	return buf, nil
}

func (r *ScrapeResponse) UnmarshalBinary(buf []byte) error {
	if err := minLength(Scrape, buf, ScrapeResponseMinLength); err != nil {
		return err
	}
	hdr, _ := DecodeHeader(buf)
	if hdr.Action != Scrape {
		return unexpectedAction(Scrape, hdr.Action)
	}
	body := buf[ScrapeResponseMinLength:]
	if len(body)%scrapeEntryLength != 0 {
		return errors.Wrapf(ErrMalformedField, "scrape: %d trailing bytes in entry list", len(body)%scrapeEntryLength)
	}
	r.TransactionID = hdr.TransactionID
	r.Entries = make([]ScrapeEntry, len(body)/scrapeEntryLength)
	for i := range r.Entries {
		off := scrapeEntryLength * i
		r.Entries[i] = ScrapeEntry{
			Seeders:   binary.BigEndian.Uint32(body[off:]),
			Completed: binary.BigEndian.Uint32(body[off+4:]),
			Leechers:  binary.BigEndian.Uint32(body[off+8:]),
		}
	}
	return nil
}
