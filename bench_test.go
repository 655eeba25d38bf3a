package xdr

import (
	"bytes"
	"testing"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

type benchSlices struct {
	Val      []string
	Mod      []int32
	Integers []int32
	Float3   []float32
	Float6   []float64
}

var benchValue = benchSlices{
	Val: []string{"azerty", "hello", "world", "random"},
	Mod: []int32{12, 10, 13, 1}, Integers: []int32{100, 250, 300},
	Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5},
}

type benchInts struct {
	Int1 uint8
	Int2 int8
	Int3 uint16
	Int4 int16
	Int5 uint32
	Int6 int32
	Int7 uint64
	Int9 int64
}

func BenchmarkMarshalSmall(b *testing.B) {
	type ZeroAllocs struct{ Int int8 }
	z := ZeroAllocs{Int: int8(1)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(z)
	}
}

func BenchmarkMarshal(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Marshal(benchValue)
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	res, _ := Marshal(benchValue)
	y := &benchSlices{}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Unmarshal(res, y)
	}
}

func BenchmarkXDR2Marshal(b *testing.B) {
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_, _ = xdr2.Marshal(&buf, &benchValue)
	}
}

func BenchmarkXDR2Unmarshal(b *testing.B) {
	res, _ := Marshal(benchValue)
	y := &benchSlices{}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = xdr2.Unmarshal(bytes.NewReader(res), y)
	}
}

func BenchmarkBasicRoundTrip(b *testing.B) {
	z := benchInts{Int1: 1, Int2: 2, Int3: 16, Int4: 18, Int5: 1586, Int6: 15262, Int7: 1547544565, Int9: 15484565656}
	y := &benchInts{}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		res, _ := Marshal(z)
		_ = Unmarshal(res, y)
	}
}

func BenchmarkStructConverter(b *testing.B) {
	p := point{X: 1, Y: 2, Label: "origin"}
	w := NewWriteStream()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w.Reset()
		_ = pointConv.Encode(p, w)
		_, _ = pointConv.Decode(NewReadStream(w.Bytes()))
	}
}

func BenchmarkUnionDecode(b *testing.B) {
	u := shapeUnion(Int32)
	data, _ := Encode[UnionValue[int32]](u, Case[int32](1, "circle"))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Decode[UnionValue[int32]](u, data)
	}
}

func BenchmarkParseInteger64(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = ParseInteger64("-9,223,372,036,854,775,808")
	}
}
