package models

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed-width record layout. Sizes are generous for the worst-case memo so
// every record of a kind encodes to the same length.
const (
	requestDiscriminator = 0x01
	chargeDiscriminator  = 0x02

	LayoutVersion = 1

	MaxMemoBytes = 200

	// RequestLen: discriminator + creator + recipient + amount + asset +
	// memo (len prefix + capacity) + created_at + status + version.
	RequestLen = 1 + 32 + 32 + 8 + 32 + (4 + MaxMemoBytes) + 8 + 1 + 1

	// ChargeLen adds charge_type, execute_at, three optional fields
	// (tag byte + fixed payload each) and the execution counter.
	ChargeLen = 1 + 32 + 32 + 8 + 32 + 1 + 8 + (1 + 8) + (1 + 8) + (1 + 4) + 4 + (4 + MaxMemoBytes) + 8 + 1 + 1
)

var ErrMalformedRecord = errors.New("malformed record")

func requestStatusByte(s RequestStatus) (byte, bool) {
	switch s {
	case RequestPending:
		return 0, true
	case RequestPaid:
		return 1, true
	case RequestCancelled:
		return 2, true
	}
	return 0, false
}

func requestStatusFromByte(b byte) (RequestStatus, bool) {
	switch b {
	case 0:
		return RequestPending, true
	case 1:
		return RequestPaid, true
	case 2:
		return RequestCancelled, true
	}
	return "", false
}

func chargeStatusByte(s ChargeStatus) (byte, bool) {
	switch s {
	case ChargePending:
		return 0, true
	case ChargeExecuted:
		return 1, true
	case ChargeCancelled:
		return 2, true
	}
	return 0, false
}

func chargeStatusFromByte(b byte) (ChargeStatus, bool) {
	switch b {
	case 0:
		return ChargePending, true
	case 1:
		return ChargeExecuted, true
	case 2:
		return ChargeCancelled, true
	}
	return "", false
}

type recordWriter struct {
	buf []byte
	off int
}

func (w *recordWriter) byte(b byte) {
	w.buf[w.off] = b
	w.off++
}

func (w *recordWriter) bytes(b []byte) {
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

func (w *recordWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *recordWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *recordWriter) i64(v int64) {
	w.u64(uint64(v))
}

func (w *recordWriter) memo(s string) {
	w.u32(uint32(len(s)))
	w.bytes([]byte(s))
	w.off += MaxMemoBytes - len(s)
}

type recordReader struct {
	buf []byte
	off int
}

func (r *recordReader) byte() byte {
	b := r.buf[r.off]
	r.off++
	return b
}

func (r *recordReader) addr() Address {
	var a Address
	copy(a[:], r.buf[r.off:])
	r.off += 32
	return a
}

func (r *recordReader) asset() Asset {
	var a Asset
	copy(a[:], r.buf[r.off:])
	r.off += 32
	return a
}

func (r *recordReader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *recordReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *recordReader) i64() int64 {
	return int64(r.u64())
}

func (r *recordReader) memo() (string, error) {
	n := r.u32()
	if n > MaxMemoBytes {
		return "", fmt.Errorf("%w: memo length %d", ErrMalformedRecord, n)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += MaxMemoBytes
	return s, nil
}

// EncodeRequest renders the canonical fixed-width form of a payment request.
// The record ref is the handle to the record, not part of its layout.
func EncodeRequest(req *PaymentRequest) ([]byte, error) {
	if len(req.Memo) > MaxMemoBytes {
		return nil, fmt.Errorf("%w: memo too long", ErrMalformedRecord)
	}
	status, ok := requestStatusByte(req.Status)
	if !ok {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedRecord, req.Status)
	}

	w := &recordWriter{buf: make([]byte, RequestLen)}
	w.byte(requestDiscriminator)
	w.bytes(req.Creator[:])
	w.bytes(req.Recipient[:])
	w.u64(req.Amount)
	w.bytes(req.Asset[:])
	w.memo(req.Memo)
	w.i64(req.CreatedAt)
	w.byte(status)
	w.byte(LayoutVersion)
	return w.buf, nil
}

func DecodeRequest(buf []byte) (*PaymentRequest, error) {
	if len(buf) != RequestLen {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedRecord, len(buf))
	}
	r := &recordReader{buf: buf}
	if r.byte() != requestDiscriminator {
		return nil, fmt.Errorf("%w: bad discriminator", ErrMalformedRecord)
	}

	var req PaymentRequest
	req.Creator = r.addr()
	req.Recipient = r.addr()
	req.Amount = r.u64()
	req.Asset = r.asset()
	memo, err := r.memo()
	if err != nil {
		return nil, err
	}
	req.Memo = memo
	req.CreatedAt = r.i64()

	status, ok := requestStatusFromByte(r.byte())
	if !ok {
		return nil, fmt.Errorf("%w: bad status byte", ErrMalformedRecord)
	}
	req.Status = status

	if r.byte() != LayoutVersion {
		return nil, fmt.Errorf("%w: bad layout version", ErrMalformedRecord)
	}
	return &req, nil
}

// EncodeCharge renders the canonical fixed-width form of a scheduled charge.
func EncodeCharge(c *ScheduledCharge) ([]byte, error) {
	if len(c.Memo) > MaxMemoBytes {
		return nil, fmt.Errorf("%w: memo too long", ErrMalformedRecord)
	}
	status, ok := chargeStatusByte(c.Status)
	if !ok {
		return nil, fmt.Errorf("%w: status %q", ErrMalformedRecord, c.Status)
	}

	w := &recordWriter{buf: make([]byte, ChargeLen)}
	w.byte(chargeDiscriminator)
	w.bytes(c.Creator[:])
	w.bytes(c.Recipient[:])
	w.u64(c.Amount)
	w.bytes(c.Asset[:])
	w.byte(c.ChargeType.Code())
	w.i64(c.ExecuteAt)

	if c.IntervalSeconds != nil {
		w.byte(1)
		w.u64(*c.IntervalSeconds)
	} else {
		w.byte(0)
		w.u64(0)
	}
	if c.LastExecutedAt != nil {
		w.byte(1)
		w.i64(*c.LastExecutedAt)
	} else {
		w.byte(0)
		w.i64(0)
	}
	if c.MaxExecutions != nil {
		w.byte(1)
		w.u32(*c.MaxExecutions)
	} else {
		w.byte(0)
		w.u32(0)
	}

	w.u32(c.ExecutionCount)
	w.memo(c.Memo)
	w.i64(c.CreatedAt)
	w.byte(status)
	w.byte(LayoutVersion)
	return w.buf, nil
}

func DecodeCharge(buf []byte) (*ScheduledCharge, error) {
	if len(buf) != ChargeLen {
		return nil, fmt.Errorf("%w: length %d", ErrMalformedRecord, len(buf))
	}
	r := &recordReader{buf: buf}
	if r.byte() != chargeDiscriminator {
		return nil, fmt.Errorf("%w: bad discriminator", ErrMalformedRecord)
	}

	var c ScheduledCharge
	c.Creator = r.addr()
	c.Recipient = r.addr()
	c.Amount = r.u64()
	c.Asset = r.asset()

	chargeType, ok := ChargeTypeFromCode(r.byte())
	if !ok {
		return nil, fmt.Errorf("%w: bad charge type", ErrMalformedRecord)
	}
	c.ChargeType = chargeType
	c.ExecuteAt = r.i64()

	if tag := r.byte(); tag == 1 {
		v := r.u64()
		c.IntervalSeconds = &v
	} else {
		r.u64()
	}
	if tag := r.byte(); tag == 1 {
		v := r.i64()
		c.LastExecutedAt = &v
	} else {
		r.i64()
	}
	if tag := r.byte(); tag == 1 {
		v := r.u32()
		c.MaxExecutions = &v
	} else {
		r.u32()
	}

	c.ExecutionCount = r.u32()
	memo, err := r.memo()
	if err != nil {
		return nil, err
	}
	c.Memo = memo
	c.CreatedAt = r.i64()

	status, ok := chargeStatusFromByte(r.byte())
	if !ok {
		return nil, fmt.Errorf("%w: bad status byte", ErrMalformedRecord)
	}
	c.Status = status

	if r.byte() != LayoutVersion {
		return nil, fmt.Errorf("%w: bad layout version", ErrMalformedRecord)
	}
	return &c, nil
}
