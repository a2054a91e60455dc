// Package exiftest builds minimal little-endian TIFF images carrying EXIF
// tags, for tests that need real decoder input.
package exiftest

import (
	"bytes"
	"encoding/binary"
)

// Rational is a numerator/denominator pair
type Rational [2]uint32

// GPS holds the GPS IFD tags
type GPS struct {
	LatitudeRef  string
	Latitude     [3]Rational
	LongitudeRef string
	Longitude    [3]Rational
	HasAltitude  bool
	AltitudeRef  byte
	Altitude     Rational
}

// Fields selects the tags written into the image. Empty strings are omitted.
type Fields struct {
	Make             string
	Model            string
	DateTimeOriginal string
	GPS              *GPS
}

// DMS splits whole degrees, minutes and seconds into rationals
func DMS(deg, min, sec uint32) [3]Rational {
	return [3]Rational{{deg, 1}, {min, 1}, {sec, 1}}
}

const (
	typeByte     = 1
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// TIFF encodes f as a TIFF byte stream
func TIFF(f Fields) []byte {
	var ifd0 []entry
	if f.Make != "" {
		ifd0 = append(ifd0, ascii(0x010F, f.Make))
	}
	if f.Model != "" {
		ifd0 = append(ifd0, ascii(0x0110, f.Model))
	}

	var gps []entry
	if f.GPS != nil {
		gps = append(gps,
			ascii(0x0001, f.GPS.LatitudeRef),
			rationals(0x0002, f.GPS.Latitude[:]),
			ascii(0x0003, f.GPS.LongitudeRef),
			rationals(0x0004, f.GPS.Longitude[:]),
		)
		if f.GPS.HasAltitude {
			gps = append(gps,
				entry{tag: 0x0005, typ: typeByte, count: 1, data: []byte{f.GPS.AltitudeRef}},
				rationals(0x0006, []Rational{f.GPS.Altitude}),
			)
		}
		// offset patched below
		ifd0 = append(ifd0, entry{tag: 0x8825, typ: typeLong, count: 1, data: make([]byte, 4)})
	}
	if f.DateTimeOriginal != "" {
		ifd0 = append(ifd0, ascii(0x9003, f.DateTimeOriginal))
	}

	const header = 8
	ifd0Off := uint32(header)
	gpsOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := gpsOff
	if len(gps) > 0 {
		dataOff += ifdSize(len(gps))
		for i := range ifd0 {
			if ifd0[i].tag == 0x8825 {
				binary.LittleEndian.PutUint32(ifd0[i].data, gpsOff)
			}
		}
	}

	var out, data bytes.Buffer
	out.WriteString("II")
	binary.Write(&out, binary.LittleEndian, uint16(42))
	binary.Write(&out, binary.LittleEndian, ifd0Off)

	writeIFD(&out, &data, ifd0, dataOff)
	if len(gps) > 0 {
		writeIFD(&out, &data, gps, dataOff)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

func ifdSize(n int) uint32 {
	return uint32(2 + 12*n + 4)
}

func writeIFD(out, data *bytes.Buffer, entries []entry, dataOff uint32) {
	binary.Write(out, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(out, binary.LittleEndian, e.tag)
		binary.Write(out, binary.LittleEndian, e.typ)
		binary.Write(out, binary.LittleEndian, e.count)
		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			out.Write(inline)
			continue
		}
		binary.Write(out, binary.LittleEndian, dataOff+uint32(data.Len()))
		data.Write(e.data)
		if data.Len()%2 == 1 {
			data.WriteByte(0)
		}
	}
	binary.Write(out, binary.LittleEndian, uint32(0))
}

func ascii(tag uint16, s string) entry {
	b := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func rationals(tag uint16, vals []Rational) entry {
	b := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, v[0])
		b = binary.LittleEndian.AppendUint32(b, v[1])
	}
	return entry{tag: tag, typ: typeRational, count: uint32(len(vals)), data: b}
}
