package wire

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/anthonyraymond/joal-udptracker/pkg/duration"
)

const (
	AnnounceRequestLength     = 98
	AnnounceResponseMinLength = 20
)

// NumWantUnlimited asks the tracker for as many peers as it is willing to give.
const NumWantUnlimited uint32 = math.MaxUint32

type AnnounceRequest struct {
	ConnectionID  uint64
	TransactionID uint32
	InfoHash      [20]byte
	PeerID        [20]byte
	Downloaded    uint64
	Left          uint64
	Uploaded      uint64
	Event         uint64
	IPAddress     uint32 // 0 lets the tracker use the sender address
	NumWant       uint32
	Port          uint16
}

func (r *AnnounceRequest) Action() Action             { return Announce }
func (r *AnnounceRequest) GetTransactionID() uint32   { return r.TransactionID }
func (r *AnnounceRequest) SetTransactionID(id uint32) { r.TransactionID = id }

func (r *AnnounceRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AnnounceRequestLength)
	putRequestHeader(buf, r.ConnectionID, Announce, r.TransactionID)
	copy(buf[16:36], r.InfoHash[:])
	copy(buf[36:56], r.PeerID[:])
	binary.BigEndian.PutUint64(buf[56:64], r.Downloaded)
	binary.BigEndian.PutUint64(buf[64:72], r.Left)
	binary.BigEndian.PutUint64(buf[72:80], r.Uploaded)
	binary.BigEndian.PutUint64(buf[80:88], r.Event)
	binary.BigEndian.PutUint32(buf[88:92], r.IPAddress)
	binary.BigEndian.PutUint32(buf[92:96], r.NumWant)
	binary.BigEndian.PutUint16(buf[96:98], r.Port)
	return buf, nil
}

func (r *AnnounceRequest) UnmarshalBinary(buf []byte) error {
	if err := exactLength(Announce, buf, AnnounceRequestLength); err != nil {
		return err
	}
	connectionID, action, transactionID := readRequestHeader(buf)
	if action != Announce {
		return unexpectedAction(Announce, action)
	}
	r.ConnectionID = connectionID
	r.TransactionID = transactionID
	copy(r.InfoHash[:], buf[16:36])
	copy(r.PeerID[:], buf[36:56])
	r.Downloaded = binary.BigEndian.Uint64(buf[56:64])
	r.Left = binary.BigEndian.Uint64(buf[64:72])
	r.Uploaded = binary.BigEndian.Uint64(buf[72:80])
	r.Event = binary.BigEndian.Uint64(buf[80:88])
	r.IPAddress = binary.BigEndian.Uint32(buf[88:92])
	r.NumWant = binary.BigEndian.Uint32(buf[92:96])
	r.Port = binary.BigEndian.Uint16(buf[96:98])
	return nil
}

type AnnounceResponse struct {
	TransactionID uint32
	Interval      uint32 // seconds to wait before the next announce
	Leechers      uint32
	Seeders       uint32
	// Peers holds whatever follows the fixed part, undecoded.
	Peers []byte
}

func (r *AnnounceResponse) Action() Action           { return Announce }
func (r *AnnounceResponse) GetTransactionID() uint32 { return r.TransactionID }

// NextAnnounceIn is the delay the tracker asks for before the next announce.
func (r *AnnounceResponse) NextAnnounceIn() time.Duration {
	return duration.Seconds(r.Interval)
}

func (r *AnnounceResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AnnounceResponseMinLength+len(r.Peers))
	putResponseHeader(buf, Announce, r.TransactionID)
	binary.BigEndian.PutUint32(buf[8:12], r.Interval)
	binary.BigEndian.PutUint32(buf[12:16], r.Leechers)
	binary.BigEndian.PutUint32(buf[16:20], r.Seeders)
	copy(buf[20:], r.Peers)
	return buf, nil
}

func (r *AnnounceResponse) UnmarshalBinary(buf []byte) error {
	if err := minLength(Announce, buf, AnnounceResponseMinLength); err != nil {
		return err
	}
	hdr, _ := DecodeHeader(buf)
	if hdr.Action != Announce {
		return unexpectedAction(Announce, hdr.Action)
	}
	r.TransactionID = hdr.TransactionID
	r.Interval = binary.BigEndian.Uint32(buf[8:12])
	r.Leechers = binary.BigEndian.Uint32(buf[12:16])
	r.Seeders = binary.BigEndian.Uint32(buf[16:20])
	r.Peers = nil
	if len(buf) > AnnounceResponseMinLength {
		r.Peers = append([]byte(nil), buf[AnnounceResponseMinLength:]...)
	}
	return nil
}
