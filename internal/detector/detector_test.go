package detector

import (
	"math"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Lang
	}{
		{name: "empty text", text: "", want: Unknown},
		{name: "whitespace only", text: "   \t\n ", want: Unknown},
		{name: "punctuation only", text: "!?，。…", want: Unknown},
		{name: "chinese", text: "你好世界！这是中文测试。", want: Chinese},
		{name: "english", text: "Hello world! This is English test.", want: English},
		{name: "mostly chinese with latin", text: "你好世界你好world", want: Chinese},
		{name: "mostly latin with two han", text: "你好world", want: English},
		{name: "digits dilute but chinese still clears", text: "123456 数字测试", want: Chinese},
		{name: "japanese kana", text: "こんにちは", want: Japanese},
		{name: "korean", text: "안녕하세요", want: Korean},
		{name: "russian", text: "Привет мир", want: Russian},
		{name: "greek", text: "Γειά σου κόσμε", want: Greek},
		{name: "hebrew", text: "שלום עולם", want: Hebrew},
		{name: "arabic", text: "مرحبا بالعالم", want: Arabic},
		{name: "digits only", text: "1234567", want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetect_ChineseThreshold(t *testing.T) {
	// 3 han of 10 word characters is exactly the Chinese bar.
	if got := Detect("你好吗1234567"); got != Chinese {
		t.Errorf("expected Chinese at ratio 0.3, got %q", got)
	}
	// 2 han of 10 is below it and nothing else qualifies.
	if got := Detect("你好12345678"); got != Unknown {
		t.Errorf("expected Unknown at ratio 0.2, got %q", got)
	}
}

func TestDetect_TieBreaksByTableOrder(t *testing.T) {
	// Equal Chinese and English shares: Chinese comes first in the table.
	if got := Detect("你好ab"); got != Chinese {
		t.Errorf("expected Chinese on tie, got %q", got)
	}
}

func TestComposition(t *testing.T) {
	shares := Composition("Hello 世界")
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d: %+v", len(shares), shares)
	}
	if shares[0].Lang != Chinese || shares[0].Count != 2 {
		t.Errorf("unexpected first share %+v", shares[0])
	}
	if shares[1].Lang != English || shares[1].Count != 5 {
		t.Errorf("unexpected second share %+v", shares[1])
	}
	if math.Abs(shares[1].Ratio-5.0/7.0) > 1e-9 {
		t.Errorf("unexpected english ratio %f", shares[1].Ratio)
	}

	if got := Composition("  "); got != nil {
		t.Errorf("expected nil composition for blank text, got %+v", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Lang
		wantOK bool
	}{
		{"cn", Chinese, true},
		{"zh", Chinese, true},
		{"zh-CN", Chinese, true},
		{"EN", English, true},
		{"en-US", English, true},
		{"ja", Japanese, true},
		{"", Unknown, false},
		{"xx-invalid-tag", Unknown, false},
		{"fr", Unknown, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLang_ISO(t *testing.T) {
	if got := Chinese.ISO(); got != "zh" {
		t.Errorf("Chinese.ISO() = %q, want zh", got)
	}
	if got := English.ISO(); got != "en" {
		t.Errorf("English.ISO() = %q, want en", got)
	}
	if Unknown.Known() {
		t.Error("Unknown must not be Known")
	}
}

func TestDetector_ResolveDirection(t *testing.T) {
	d, err := New(Config{Primary: Chinese, Secondary: English})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name     string
		text     string
		wantFrom Lang
		wantTo   Lang
	}{
		{"primary", "你好世界", Chinese, English},
		{"secondary", "Hello world", English, Chinese},
		{"unknown falls back to default", "12345", Chinese, English},
		{"other language falls back to default", "Привет мир", Chinese, English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := d.ResolveDirection(tt.text)
			if dir.From != tt.wantFrom || dir.To != tt.wantTo {
				t.Errorf("ResolveDirection(%q) = %s→%s, want %s→%s", tt.text, dir.From, dir.To, tt.wantFrom, tt.wantTo)
			}
			if dir.Source != Top || dir.Target != Bottom {
				t.Errorf("expected source on top, got source=%s target=%s", dir.Source, dir.Target)
			}
		})
	}
}

func TestDetector_SourceSlotBottom(t *testing.T) {
	d, err := New(Config{Primary: Chinese, Secondary: English, SourceSlot: Bottom})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := d.ResolveDirection("Hello")
	if dir.Source != Bottom || dir.Target != Top {
		t.Errorf("expected source bottom, got %+v", dir)
	}
}

func TestDetector_New_Invalid(t *testing.T) {
	if _, err := New(Config{Primary: Chinese, Secondary: Chinese}); err == nil {
		t.Error("expected error for identical pair")
	}
	if _, err := New(Config{Primary: "xx", Secondary: English}); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestDetector_PairLang(t *testing.T) {
	d, _ := New(Config{Primary: Chinese, Secondary: English})
	if l, ok := d.PairLang("引领者之星"); !ok || l != Chinese {
		t.Errorf("PairLang chinese = (%q, %v)", l, ok)
	}
	if _, ok := d.PairLang("こんにちは"); ok {
		t.Error("PairLang should drop languages outside the pair")
	}
}
