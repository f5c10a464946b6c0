package country

// CallingCodes maps a dialing prefix ("+91") to a canonical country code ("IN").
type CallingCodes map[string]string

// Aliases maps a canonical country code to the display names a catalog may use for it.
// The first name is the canonical English name.
type Aliases map[string][]string

// canadianAreaCodes share +1 with the United States; they are listed so the longer prefix wins.
var canadianAreaCodes = []string{
	"204", "226", "236", "249", "250", "263", "289", "306", "343", "354", "365", "367", "368",
	"403", "416", "418", "428", "431", "437", "438", "450", "468", "474", "506", "514", "519",
	"548", "579", "581", "584", "587", "604", "613", "639", "647", "672", "683", "705", "709",
	"742", "753", "778", "780", "782", "807", "819", "825", "867", "873", "879", "902", "905",
}

// DefaultCallingCodes returns the built-in calling-code table.
func DefaultCallingCodes() CallingCodes {
	codes := CallingCodes{
		"+1":   "US",
		"+7":   "RU",
		"+20":  "EG",
		"+27":  "ZA",
		"+30":  "GR",
		"+31":  "NL",
		"+32":  "BE",
		"+33":  "FR",
		"+34":  "ES",
		"+39":  "IT",
		"+41":  "CH",
		"+43":  "AT",
		"+44":  "GB",
		"+45":  "DK",
		"+46":  "SE",
		"+47":  "NO",
		"+48":  "PL",
		"+49":  "DE",
		"+51":  "PE",
		"+52":  "MX",
		"+54":  "AR",
		"+55":  "BR",
		"+56":  "CL",
		"+57":  "CO",
		"+60":  "MY",
		"+61":  "AU",
		"+62":  "ID",
		"+63":  "PH",
		"+64":  "NZ",
		"+65":  "SG",
		"+66":  "TH",
		"+81":  "JP",
		"+82":  "KR",
		"+84":  "VN",
		"+86":  "CN",
		"+90":  "TR",
		"+91":  "IN",
		"+92":  "PK",
		"+98":  "IR",
		"+212": "MA",
		"+213": "DZ",
		"+216": "TN",
		"+234": "NG",
		"+254": "KE",
		"+351": "PT",
		"+358": "FI",
		"+380": "UA",
		"+852": "HK",
		"+880": "BD",
		"+886": "TW",
		"+964": "IQ",
		"+965": "KW",
		"+966": "SA",
		"+971": "AE",
		"+972": "IL",
		"+974": "QA",
	}
	for _, area := range canadianAreaCodes {
		codes["+1"+area] = "CA"
	}
	return codes
}

// DefaultAliases returns the built-in alias table for DefaultCallingCodes.
func DefaultAliases() Aliases {
	return Aliases{
		"US": {"United States", "USA", "United States of America"},
		"CA": {"Canada"},
		"RU": {"Russia", "Russian Federation"},
		"EG": {"Egypt"},
		"ZA": {"South Africa"},
		"GR": {"Greece"},
		"NL": {"Netherlands", "Holland"},
		"BE": {"Belgium"},
		"FR": {"France"},
		"ES": {"Spain"},
		"IT": {"Italy"},
		"CH": {"Switzerland"},
		"AT": {"Austria"},
		"GB": {"United Kingdom", "UK", "Great Britain", "Britain", "England"},
		"DK": {"Denmark"},
		"SE": {"Sweden"},
		"NO": {"Norway"},
		"PL": {"Poland"},
		"DE": {"Germany"},
		"PE": {"Peru"},
		"MX": {"Mexico"},
		"AR": {"Argentina"},
		"BR": {"Brazil"},
		"CL": {"Chile"},
		"CO": {"Colombia"},
		"MY": {"Malaysia"},
		"AU": {"Australia"},
		"ID": {"Indonesia"},
		"PH": {"Philippines"},
		"NZ": {"New Zealand"},
		"SG": {"Singapore"},
		"TH": {"Thailand"},
		"JP": {"Japan"},
		"KR": {"South Korea", "Republic of Korea"},
		"VN": {"Vietnam", "Viet Nam"},
		"CN": {"China"},
		"TR": {"Turkey", "Türkiye", "Turkiye"},
		"IN": {"India"},
		"PK": {"Pakistan"},
		"IR": {"Iran"},
		"MA": {"Morocco"},
		"DZ": {"Algeria"},
		"TN": {"Tunisia"},
		"NG": {"Nigeria"},
		"KE": {"Kenya"},
		"PT": {"Portugal"},
		"FI": {"Finland"},
		"UA": {"Ukraine"},
		"HK": {"Hong Kong"},
		"BD": {"Bangladesh"},
		"TW": {"Taiwan"},
		"IQ": {"Iraq"},
		"KW": {"Kuwait"},
		"SA": {"Saudi Arabia", "KSA"},
		"AE": {"United Arab Emirates", "UAE", "Emirates"},
		"IL": {"Israel"},
		"QA": {"Qatar"},
	}
}
