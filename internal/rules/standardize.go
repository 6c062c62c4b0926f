package rules

import (
	"strings"

	"github.com/biter777/countries"

	"datascrubber/internal/models"
)

// Standardize reshapes a table to the precleaned schema: reindex, newest reads
// first, optional Transaction ID dedupe, then masking of empty and withheld
// values with the undisclosed marker.
func Standardize(undisclosed string, maskTokens []string, dedupe bool) Rule {
	masked := make(map[string]bool, len(maskTokens))
	for _, tok := range maskTokens {
		masked[tok] = true
	}

	return New("standardize", func(t *models.Table) (int, error) {
		t.Reindex(models.PrecleanedColumns, "")
		t.SortBy(models.ColReadDate, true)

		if dedupe {
			seen := make(map[string]bool, t.Len())

			t.Filter(func(rec models.Record) bool {
				id := rec[models.ColTransactionID]
				if seen[id] {
					return false
				}

				seen[id] = true

				return true
			})
		}

		for _, rec := range t.Records {
			for _, c := range models.PrecleanedColumns {
				v := strings.TrimSpace(rec[c])
				if v == "" || masked[v] {
					v = undisclosed
				}

				rec[c] = v
			}
		}

		return 0, nil
	})
}

// isoShortNames holds the ISO 3166-1 English short names for the codes where
// the countries package uses a different form. The country mapping master is
// keyed by these names.
var isoShortNames = map[string]string{
	"AE": "United Arab Emirates",
	"AX": "Åland Islands",
	"BL": "Saint Barthélemy",
	"BN": "Brunei Darussalam",
	"BO": "Bolivia, Plurinational State of",
	"BQ": "Bonaire, Sint Eustatius and Saba",
	"BS": "Bahamas",
	"CC": "Cocos (Keeling) Islands",
	"CD": "Congo, The Democratic Republic of the",
	"CG": "Congo",
	"CI": "Côte d'Ivoire",
	"CN": "China",
	"CV": "Cabo Verde",
	"CW": "Curaçao",
	"CZ": "Czechia",
	"DO": "Dominican Republic",
	"FK": "Falkland Islands (Malvinas)",
	"FM": "Micronesia, Federated States of",
	"GB": "United Kingdom",
	"GM": "Gambia",
	"HK": "Hong Kong",
	"HM": "Heard Island and McDonald Islands",
	"IO": "British Indian Ocean Territory",
	"IR": "Iran, Islamic Republic of",
	"KM": "Comoros",
	"KN": "Saint Kitts and Nevis",
	"KP": "Korea, Democratic People's Republic of",
	"KR": "Korea, Republic of",
	"KY": "Cayman Islands",
	"LA": "Lao People's Democratic Republic",
	"MD": "Moldova, Republic of",
	"MF": "Saint Martin (French part)",
	"MH": "Marshall Islands",
	"MK": "North Macedonia",
	"MM": "Myanmar",
	"MO": "Macao",
	"MP": "Northern Mariana Islands",
	"NL": "Netherlands",
	"PH": "Philippines",
	"PM": "Saint Pierre and Miquelon",
	"PN": "Pitcairn",
	"PS": "Palestine, State of",
	"RE": "Réunion",
	"RU": "Russian Federation",
	"SH": "Saint Helena, Ascension and Tristan da Cunha",
	"SJ": "Svalbard and Jan Mayen",
	"SX": "Sint Maarten (Dutch part)",
	"SY": "Syrian Arab Republic",
	"SZ": "Eswatini",
	"TC": "Turks and Caicos Islands",
	"TF": "French Southern Territories",
	"TL": "Timor-Leste",
	"TR": "Türkiye",
	"TW": "Taiwan, Province of China",
	"TZ": "Tanzania, United Republic of",
	"UM": "United States Minor Outlying Islands",
	"US": "United States",
	"VA": "Holy See (Vatican City State)",
	"VC": "Saint Vincent and the Grenadines",
	"VE": "Venezuela, Bolivarian Republic of",
	"VG": "Virgin Islands, British",
	"VI": "Virgin Islands, U.S.",
	"VN": "Viet Nam",
}

// CountryName resolves an ISO 3166 alpha-2 code to its ISO English short name.
// Anything else is returned unchanged.
func CountryName(code string) string {
	if len(code) != 2 {
		return code
	}

	c := countries.ByName(strings.ToUpper(code))
	if c == countries.Unknown || !strings.EqualFold(c.Alpha2(), code) {
		return code
	}

	if name, ok := isoShortNames[c.Alpha2()]; ok {
		return name
	}

	return c.String()
}

// Country maps alpha-2 codes to names, applies the custom mapping on the
// result and upper-cases everything except the undisclosed marker.
func Country(mapping map[string]string, undisclosed string) Rule {
	return New("country", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColCountry); err != nil {
			return 0, err
		}

		for _, rec := range t.Records {
			v := rec[models.ColCountry]
			if v == undisclosed {
				continue
			}

			v = CountryName(v)
			if mapped, ok := mapping[v]; ok {
				v = mapped
			}

			if v != undisclosed {
				v = strings.ToUpper(v)
			}

			rec[models.ColCountry] = v
		}

		return 0, nil
	})
}

// City applies the city mapping and upper-cases everything except the
// undisclosed marker.
func City(mapping map[string]string, undisclosed string) Rule {
	return New("city", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColCity); err != nil {
			return 0, err
		}

		for _, rec := range t.Records {
			v := rec[models.ColCity]
			if mapped, ok := mapping[v]; ok {
				v = mapped
			}

			if v != undisclosed {
				v = strings.ToUpper(v)
			}

			rec[models.ColCity] = v
		}

		return 0, nil
	})
}
