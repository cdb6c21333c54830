package gallery

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"oprdesk/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func png(name string, marker byte) File {
	data := append(append([]byte(nil), pngHeader...), marker)
	return BytesFile(name, data)
}

func oversized(name string) File {
	return File{Name: name, Size: domain.MaxImageBytes + 1, Open: func() (io.ReadCloser, error) {
		panic("oversized files must not be opened")
	}}
}

func TestAddImagesKeepsSubmissionOrder(t *testing.T) {
	g := New()
	res, err := g.AddImages(context.Background(), []File{png("a.png", 'a'), png("b.png", 'b'), png("c.png", 'c')})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Added != 3 || len(res.Notices) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	imgs := g.Images()
	for i, want := range []File{png("a.png", 'a'), png("b.png", 'b'), png("c.png", 'c')} {
		enc, _ := encode(want)
		if imgs[i] != enc {
			t.Fatalf("slot %d out of order", i)
		}
		if !strings.HasPrefix(imgs[i], "data:image/png;base64,") {
			t.Fatalf("unexpected data url %q", imgs[i][:30])
		}
	}
}

func TestAddImagesCapacityNotice(t *testing.T) {
	g := New()
	if _, err := g.AddImages(context.Background(), []File{png("1", '1'), png("2", '2'), png("3", '3')}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := g.AddImages(context.Background(), []File{png("4", '4'), png("5", '5')})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Added != 1 || g.Count() != domain.MaxImages {
		t.Fatalf("expected exactly one added, got %+v count=%d", res, g.Count())
	}
	if len(res.Notices) != 1 || res.Notices[0].Level != LevelInfo || res.Notices[0].Message != "only 1 slots remain" {
		t.Fatalf("unexpected notices %+v", res.Notices)
	}
	res, _ = g.AddImages(context.Background(), []File{png("6", '6')})
	if res.Added != 0 || res.Notices[0].Message != "only 0 slots remain" {
		t.Fatalf("full gallery must refuse: %+v", res)
	}
}

func TestAddImagesMixedBatch(t *testing.T) {
	g := New()
	notImage := BytesFile("notes.txt", []byte("hello world"))
	res, err := g.AddImages(context.Background(), []File{png("ok1", '1'), oversized("big.jpg"), notImage, png("ok2", '2')})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Added != 2 || g.Count() != 2 {
		t.Fatalf("expected only valid files added, got %+v", res)
	}
	if len(res.Notices) != 2 {
		t.Fatalf("expected two error notices, got %+v", res.Notices)
	}
	if res.Notices[0].File != "big.jpg" || !strings.Contains(res.Notices[0].Message, "big.jpg exceeds the 5MB limit") {
		t.Fatalf("unexpected oversize notice %+v", res.Notices[0])
	}
	if res.Notices[1].File != "notes.txt" || res.Notices[1].Level != LevelError {
		t.Fatalf("unexpected non-image notice %+v", res.Notices[1])
	}
}

func TestOversizedNeverIncreasesCount(t *testing.T) {
	g := New()
	for i := 0; i < 10; i++ {
		if _, err := g.AddImages(context.Background(), []File{oversized("x.png")}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if g.Count() != 0 {
		t.Fatalf("expected 0 images, got %d", g.Count())
	}
}

func TestUnderstatedSizeIsCaughtOnRead(t *testing.T) {
	big := make([]byte, domain.MaxImageBytes+10)
	copy(big, pngHeader)
	f := BytesFile("liar.png", big)
	f.Size = 10
	res, err := New().AddImages(context.Background(), []File{f})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Added != 0 || len(res.Notices) != 1 {
		t.Fatalf("expected rejection, got %+v", res)
	}
}

func TestOpenFailureIsNotice(t *testing.T) {
	f := File{Name: "gone.png", Size: 4, Open: func() (io.ReadCloser, error) { return nil, errors.New("vanished") }}
	res, err := New().AddImages(context.Background(), []File{f, png("ok", 'k')})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Added != 1 || len(res.Notices) != 1 || !strings.Contains(res.Notices[0].Message, "vanished") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New()
	if _, err := g.AddImages(ctx, []File{png("a", 'a')}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if g.Count() != 0 {
		t.Fatalf("canceled add must not mutate")
	}
}

func TestRemoveImage(t *testing.T) {
	g := New()
	_, _ = g.AddImages(context.Background(), []File{png("a", 'a'), png("b", 'b'), png("c", 'c')})
	before := g.Images()
	if !g.RemoveImage(1) {
		t.Fatalf("expected removal")
	}
	after := g.Images()
	if len(after) != 2 || after[0] != before[0] || after[1] != before[2] {
		t.Fatalf("expected shift left")
	}
	for _, i := range []int{-1, 2, 100} {
		if g.RemoveImage(i) {
			t.Fatalf("index %d should be a no-op", i)
		}
	}
	if g.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", g.Remaining())
	}
}

func TestCountNeverExceedsMaxUnderRandomOps(t *testing.T) {
	g := New()
	r := rand.New(rand.NewSource(42))
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rr := rand.New(rand.NewSource(seed))
			for i := 0; i < 50; i++ {
				if rr.Intn(3) == 0 {
					g.RemoveImage(rr.Intn(6) - 1)
					continue
				}
				batch := make([]File, rr.Intn(6))
				for j := range batch {
					if rr.Intn(4) == 0 {
						batch[j] = oversized("big")
					} else {
						batch[j] = png("p", byte(j))
					}
				}
				_, _ = g.AddImages(context.Background(), batch)
				if c := g.Count(); c > domain.MaxImages {
					t.Errorf("count %d exceeds max", c)
				}
			}
		}(r.Int63())
	}
	wg.Wait()
	if c := g.Count(); c < 0 || c > domain.MaxImages {
		t.Fatalf("count out of range: %d", c)
	}
}
