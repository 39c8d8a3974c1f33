package tgui

import (
	"errors"
	"strings"
	"testing"
)

func TestPaginate(t *testing.T) {
	t.Parallel()

	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	cases := []struct {
		index     int
		wantIdx   int
		wantItems []int
		prev      bool
		next      bool
	}{
		{0, 0, []int{1, 2, 3, 4, 5}, false, true},
		{1, 1, []int{6, 7, 8, 9, 10}, true, true},
		{2, 2, []int{11, 12}, true, false},
		{9, 2, []int{11, 12}, true, false},
		{-3, 0, []int{1, 2, 3, 4, 5}, false, true},
	}
	for _, tc := range cases {
		p := Paginate(items, tc.index, 5)
		if p.Index != tc.wantIdx || p.Count != 3 || p.Total != 12 {
			t.Fatalf("index %d: page=%+v", tc.index, p)
		}
		if len(p.Items) != len(tc.wantItems) || p.Items[0] != tc.wantItems[0] {
			t.Fatalf("index %d: items=%v want %v", tc.index, p.Items, tc.wantItems)
		}
		if p.HasPrev() != tc.prev || p.HasNext() != tc.next {
			t.Fatalf("index %d: prev=%v next=%v", tc.index, p.HasPrev(), p.HasNext())
		}
	}

	empty := Paginate([]int(nil), 4, 5)
	if empty.Count != 1 || empty.Index != 0 || len(empty.Items) != 0 || empty.Label() != "Page 1/1" {
		t.Fatalf("empty page=%+v", empty)
	}
}

func TestCallbackData(t *testing.T) {
	t.Parallel()

	d, err := Data("rem", "page", "42:3")
	if err != nil || d != "rem:page:42:3" {
		t.Fatalf("Data=%q err=%v", d, err)
	}
	ns, action, payload, ok := ParseData(d)
	if !ok || ns != "rem" || action != "page" || payload != "42:3" {
		t.Fatalf("ParseData=%q %q %q %v", ns, action, payload, ok)
	}
	if _, _, _, ok := ParseData("broken"); ok {
		t.Fatalf("ParseData should reject data without action")
	}
	if _, err := Data("rem", "page", strings.Repeat("x", 64)); !errors.Is(err, ErrCallbackDataTooLong) {
		t.Fatalf("expected ErrCallbackDataTooLong, got %v", err)
	}
}

func TestBuilderEscapes(t *testing.T) {
	t.Parallel()

	msg := New().
		Title("⏰", "Reminder <1>").
		KV("Ends in", "5 <b>").
		HTML(Mention("Ann & Bo", 7)).
		Build()
	want := "⏰ <b>Reminder &lt;1&gt;</b>\n<b>Ends in</b>: 5 &lt;b&gt;\n<a href=\"tg://user?id=7\">Ann &amp; Bo</a>"
	if msg.Text != want {
		t.Fatalf("text:\n%s\nwant\n%s", msg.Text, want)
	}
	if msg.Opt.ParseMode != "HTML" || !msg.Opt.DisablePreview || msg.Opt.ReplyMarkupAdapter != nil {
		t.Fatalf("opt=%+v", msg.Opt)
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	if got := TruncRunes("héllo wörld", 5); got != "héllo…" {
		t.Fatalf("got %q", got)
	}
	if got := TruncRunes("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
}
