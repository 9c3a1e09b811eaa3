package bytecode

import "testing"

func TestChunkWriteTracksLines(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpTrue), 1)
	c.Write(byte(OpFalse), 1)
	c.Write(byte(OpPop), 2)

	if len(c.Code) != 3 {
		t.Fatalf("expected 3 bytes written, got %d", len(c.Code))
	}
	if c.GetLine(0) != 1 || c.GetLine(1) != 1 {
		t.Fatalf("expected line 1 for first two instructions")
	}
	if c.GetLine(2) != 2 {
		t.Fatalf("expected line 2 for third instruction, got %d", c.GetLine(2))
	}
}

func TestChunkAddConstantReturnsIndex(t *testing.T) {
	c := NewChunk()
	idx1 := c.AddConstant(NumberVal(1))
	idx2 := c.AddConstant(NumberVal(2))
	if idx1 != 0 || idx2 != 1 {
		t.Fatalf("expected sequential indices 0, 1; got %d, %d", idx1, idx2)
	}
	if c.Constants[idx1].Number != 1 || c.Constants[idx2].Number != 2 {
		t.Fatalf("constants not stored at reported indices")
	}
}
