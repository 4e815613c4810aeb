package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestGuestNames(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  []string
		ok    bool
	}{
		{"comma separated", "Juan Pérez, María González", []string{"Juan Pérez", "María González"}, true},
		{"y separator", "ana y luis", []string{"Ana", "Luis"}, true},
		{"line breaks and noise", "Pedro!!\n@Carla#", []string{"Pedro", "Carla"}, true},
		{"single name", "josé", []string{"José"}, true},
		{"empty", "   ", nil, false},
		{"only noise", "!!! ### 1", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := GuestNames(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuestNamesCapsAtTen(t *testing.T) {
	raw := "a1, b2, c3, d4, e5, f6, g7, h8, i9, j10, k11, l12"
	got, msg, ok := GuestNames(raw)
	require.True(t, ok)
	assert.Len(t, got, MaxGuests)
	assert.Contains(t, msg, "10")
}

func TestParseDateDayMonthPriority(t *testing.T) {
	// 05/04 must be the 5th of April, not May 4th.
	d, _, ok := ParseDate("05/04/2026", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC), d)
}

func TestParseDateFormats(t *testing.T) {
	want := time.Date(2025, time.December, 22, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"22/12/2025", "22-12-2025", "22.12.2025", "2025-12-22",
		"22 de diciembre de 2025", "22 diciembre 2025",
	} {
		d, msg, ok := ParseDate(raw, now)
		require.True(t, ok, "input %q: %s", raw, msg)
		assert.Equal(t, want, d, "input %q", raw)
	}
}

func TestParseDateInvalidCalendar(t *testing.T) {
	// 31st of February is not a date under any pattern.
	_, _, ok := ParseDate("31/02/2025", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestParseDateWindow(t *testing.T) {
	_, msg, ok := ParseDate("22/12/2024", now)
	assert.False(t, ok)
	assert.Contains(t, msg, "pasado")

	_, msg, ok = ParseDate("22/12/2031", now)
	assert.False(t, ok)
	assert.Contains(t, msg, "futuro")

	// Today itself is allowed.
	_, _, ok = ParseDate("01/06/2025", now)
	assert.True(t, ok)
}

func TestParseDateGarbage(t *testing.T) {
	for _, raw := range []string{"", "mañana", "12", "aaaa-bb-cc"} {
		_, _, ok := ParseDate(raw, now)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestDateRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, time.December, d, 0, 0, 0, 0, time.UTC) }
	tests := []struct {
		name    string
		in, out time.Time
		ok      bool
	}{
		{"one night", day(22), day(23), true},
		{"thirty days", day(1), day(31), true},
		{"same day", day(22), day(22), false},
		{"reversed", day(24), day(22), false},
		{"too long", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DateRange(tt.in, tt.out)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"3001234567", "+573001234567", true}, // 10 digits -> Colombian prefix
		{"+57 300 123 4567", "+573001234567", true},
		{"(300) 123-4567", "+573001234567", true},
		{"1234567", "+1234567", true},
		{"123456", "", false},
		{"1234567890123456", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, _, ok := Phone(tt.raw)
		assert.Equal(t, tt.ok, ok, "input %q", tt.raw)
		assert.Equal(t, tt.want, got, "input %q", tt.raw)
	}
}

func TestEmail(t *testing.T) {
	got, _, ok := Email("  Test@Example.COM ")
	require.True(t, ok)
	assert.Equal(t, "test@example.com", got)

	for _, raw := range []string{"", "nope", "a@b", "a b@c.com"} {
		_, _, ok := Email(raw)
		assert.False(t, ok, "input %q", raw)
	}

	long := "a"
	for len(long) < 100 {
		long += "a"
	}
	_, _, ok = Email(long + "@example.com")
	assert.False(t, ok)
}

func TestContactInfoAccumulatesErrors(t *testing.T) {
	_, _, errs := ContactInfo("123", "not-an-email")
	assert.Len(t, errs, 2)

	phone, email, errs := ContactInfo("3001234567", "test@example.com")
	assert.Empty(t, errs)
	assert.Equal(t, "+573001234567", phone)
	assert.Equal(t, "test@example.com", email)
}

func TestDomo(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"antares", "Antares", true},
		{"ANTARES", "Antares", true},
		{"luna", "Antares", true}, // alias
		{"el domo polaris por favor", "Polaris", true},
		{"siri", "Sirius", true}, // substring both directions
		{"iglú", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, _, ok := Domo(tt.raw)
		assert.Equal(t, tt.ok, ok, "input %q", tt.raw)
		assert.Equal(t, tt.want, got, "input %q", tt.raw)
	}
}

func TestServiceCustomFallback(t *testing.T) {
	got, _, ok := Service("romantica")
	require.True(t, ok)
	assert.Equal(t, "Cena romántica", got)

	got, _, ok = Service("picnic al atardecer!!")
	require.True(t, ok)
	assert.Equal(t, "picnic al atardecer", got)

	got, _, ok = Service("")
	require.True(t, ok)
	assert.Equal(t, "Servicio estándar", got)
}

func TestPaymentMethod(t *testing.T) {
	got, _, ok := PaymentMethod("transferencia")
	require.True(t, ok)
	assert.Equal(t, "Transferencia bancaria", got)

	got, _, ok = PaymentMethod("nequi")
	require.True(t, ok)
	assert.Equal(t, "Nequi", got)

	// Unknown methods fall back to a cleaned custom value.
	got, _, ok = PaymentMethod("vacas :)")
	require.True(t, ok)
	assert.Equal(t, "vacas", got)
}

func TestAdditionalServicesAndComments(t *testing.T) {
	got, _, ok := AdditionalServices("")
	require.True(t, ok)
	assert.Equal(t, "Ninguna", got)

	got, _, ok = SpecialComments("llegamos tarde (después de las 9)")
	require.True(t, ok)
	assert.Equal(t, "llegamos tarde (después de las 9)", got)

	got, _, ok = SpecialComments("")
	require.True(t, ok)
	assert.Equal(t, "Ninguno", got)
}
