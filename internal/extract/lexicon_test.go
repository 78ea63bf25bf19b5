package extract

import "testing"

func TestNormalizeCompany(t *testing.T) {
	lex := DefaultLexicon()
	cases := []struct {
		in, want string
	}{
		{"Initech GmbH", "initech"},
		{"Initech Deutschland GmbH", "initech"},
		{"Acme, Inc.", "acme"},
		{"Globex Technologies Ltd", "globex"},
		{"  Hooli  ", "hooli"},
		{"Soylent Corp.", "soylent"},
		// a bare suffix word is not stripped to nothing
		{"GmbH", "gmbh"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := lex.NormalizeCompany(tc.in); got != tc.want {
			t.Errorf("NormalizeCompany(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCompany_Idempotent(t *testing.T) {
	lex := DefaultLexicon()
	for _, name := range []string{"Initech Deutschland GmbH", "Acme, Inc.", "Globex Group Berlin"} {
		once := lex.NormalizeCompany(name)
		if twice := lex.NormalizeCompany(once); twice != once {
			t.Errorf("NormalizeCompany not idempotent for %q: %q then %q", name, once, twice)
		}
	}
}

func TestCompanyNamesMatch(t *testing.T) {
	lex := DefaultLexicon()
	cases := []struct {
		a, b string
		want bool
	}{
		{"Initech GmbH", "Initech", true},
		{"initech", "INITECH", true},
		{"Initech", "Globex", false},
		// acronym, both directions
		{"BMW", "Bayerische Motoren Werke", true},
		{"Bayerische Motoren Werke", "BMW", true},
		{"BMW", "Bayerische Motoren", false},
		// containment after filler removal
		{"Globex Payment Systems", "Globex Payment", true},
		// short normalized names never fuzzy-match
		{"Abc", "Abcdef", false},
		{"", "Initech", false},
	}
	for _, tc := range cases {
		if got := lex.CompanyNamesMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("CompanyNamesMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCompanyNamesMatch_Symmetric(t *testing.T) {
	lex := DefaultLexicon()
	pairs := [][2]string{
		{"Initech GmbH", "Initech"},
		{"BMW", "Bayerische Motoren Werke"},
		{"Globex Payment Systems", "Globex Payment"},
		{"Acme", "Globex"},
	}
	for _, p := range pairs {
		if lex.CompanyNamesMatch(p[0], p[1]) != lex.CompanyNamesMatch(p[1], p[0]) {
			t.Errorf("CompanyNamesMatch(%q, %q) not symmetric", p[0], p[1])
		}
	}
}

func TestIsExcludedDomain(t *testing.T) {
	lex := DefaultLexicon()
	cases := []struct {
		domain string
		want   bool
	}{
		{"gmail.com", true},
		{"greenhouse.io", true},
		{"myworkdayjobs.com", true},
		// tenant subdomains of shared platforms
		{"acme.wd3.myworkdayjobs.com", true},
		{"initech.recruitee.com", true},
		{"initech.com", false},
		{"notmyworkdayjobs.com", false},
	}
	for _, tc := range cases {
		if got := lex.IsExcludedDomain(tc.domain); got != tc.want {
			t.Errorf("IsExcludedDomain(%q) = %v, want %v", tc.domain, got, tc.want)
		}
	}
}

func TestIsSharedEmail(t *testing.T) {
	lex := DefaultLexicon()
	cases := []struct {
		addr string
		want bool
	}{
		{"notifications@smartrecruiters.com", true},
		{"NO-REPLY@greenhouse.io", true},
		// any address on an excluded domain is shared
		{"careers@lever.co", true},
		{"someone@gmail.com", true},
		{"jane@initech.com", false},
	}
	for _, tc := range cases {
		if got := lex.IsSharedEmail(tc.addr); got != tc.want {
			t.Errorf("IsSharedEmail(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}
