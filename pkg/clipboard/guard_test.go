package clipboard

import (
	"testing"

	"github.com/pushtotalk/pushtotalkd/pkg/keys"
	"github.com/pushtotalk/pushtotalkd/pkg/platform"
)

type fakeBackend struct {
	content string
}

func (f *fakeBackend) ReadAll() (string, error)  { return f.content, nil }
func (f *fakeBackend) WriteAll(s string) error    { f.content = s; return nil }

type fakeProbe struct {
	copyFn func()
}

func (fakeProbe) IsPhysicallyDown(keys.Key) bool { return false }
func (p fakeProbe) SendChordCopy() error {
	if p.copyFn != nil {
		p.copyFn()
	}
	return nil
}
func (fakeProbe) SendChordPaste() error                                      { return nil }
func (fakeProbe) ReleaseAllModifiers() error                                 { return nil }
func (fakeProbe) ForegroundWindow() (platform.WindowHandle, error)           { return 0, nil }
func (fakeProbe) IsWindowValid(platform.WindowHandle) bool                  { return true }
func (fakeProbe) ForceForeground(platform.WindowHandle) error               { return nil }
func (fakeProbe) RestoreFocusWithVerify(platform.WindowHandle, int) error   { return nil }

func withFakeBackend(t *testing.T, content string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{content: content}
	old := clip
	clip = fb
	t.Cleanup(func() { clip = old })
	return fb
}

func TestGuardRoundTrip(t *testing.T) {
	withFakeBackend(t, "original")

	g, err := Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := InsertText(fakeProbe{}, "new text", false, g); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if clip.(*fakeBackend).content != "original" {
		t.Fatalf("expected snapshot restored, got %q", clip.(*fakeBackend).content)
	}
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	withFakeBackend(t, "X")
	g, err := Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := g.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	clip.WriteAll("mutated after release")
	if err := g.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if clip.(*fakeBackend).content != "mutated after release" {
		t.Fatal("second release must be a no-op, not re-restore the snapshot")
	}
}

func TestCaptureSelectionFound(t *testing.T) {
	fb := withFakeBackend(t, "pre-existing")
	probe := fakeProbe{copyFn: func() { fb.content = "teh cat" }}

	guard, text, err := CaptureSelection(probe)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if text != "teh cat" {
		t.Fatalf("expected captured selection, got %q", text)
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if fb.content != "pre-existing" {
		t.Fatalf("expected snapshot restored, got %q", fb.content)
	}
}

func TestCaptureSelectionNoneFound(t *testing.T) {
	withFakeBackend(t, "pre-existing")
	probe := fakeProbe{} // copy is a no-op, sentinel never changes

	guard, text, err := CaptureSelection(probe)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if text != "" {
		t.Fatalf("expected no selection, got %q", text)
	}
	if guard == nil {
		t.Fatal("guard must still be returned on a failed/empty capture")
	}
}
