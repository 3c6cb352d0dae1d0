package tax

// stateNames maps the first two GSTIN characters to the issuing state or
// territory. Used for jurisdiction display on the wire, not for the
// inter/intra decision itself.
var stateNames = map[string]string{
	"01": "Jammu & Kashmir", "02": "Himachal Pradesh", "03": "Punjab",
	"04": "Chandigarh", "05": "Uttarakhand", "06": "Haryana",
	"07": "Delhi", "08": "Rajasthan", "09": "Uttar Pradesh",
	"10": "Bihar", "11": "Sikkim", "12": "Arunachal Pradesh",
	"13": "Nagaland", "14": "Manipur", "15": "Mizoram",
	"16": "Tripura", "17": "Meghalaya", "18": "Assam",
	"19": "West Bengal", "20": "Jharkhand", "21": "Odisha",
	"22": "Chhattisgarh", "23": "Madhya Pradesh", "24": "Gujarat",
	"25": "Daman & Diu", "26": "Dadra & Nagar Haveli", "27": "Maharashtra",
	"29": "Karnataka", "30": "Goa", "31": "Lakshadweep",
	"32": "Kerala", "33": "Tamil Nadu", "34": "Puducherry",
	"35": "Andaman & Nicobar Islands", "36": "Telangana",
	"37": "Andhra Pradesh", "38": "Ladakh",
}

// StateName returns the state for a GSTIN's leading state code, or "" when
// the code is unknown or the value is too short.
func StateName(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return stateNames[gstin[:2]]
}

// PartyState resolves the display state for a party: the GSTIN's state when
// known, otherwise the engine's home state.
func (e Engine) PartyState(gstin string) string {
	if s := StateName(gstin); s != "" {
		return s
	}
	if s := stateNames[e.HomeStateCode]; s != "" {
		return s
	}
	return stateNames[DefaultHomeStateCode]
}
