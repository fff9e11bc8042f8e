package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnknownParameter is returned when a parameter id is not in the catalog.
var ErrUnknownParameter = errors.New("unknown parameter")

// Parameter describes one measured quantity offered by the metobs API.
type Parameter struct {
	ID      string
	Title   string
	Summary string // sampling cadence as published by SMHI
	Unit    string
}

var parameterList = []Parameter{
	{"21", "Byvind", "max, 1 gång/tim", "meter per sekund"},
	{"39", "Daggpunktstemperatur", "momentanvärde, 1 gång/tim", "celsius"},
	{"11", "Global Irradians (svenska stationer)", "medelvärde 1 timme, 1 gång/tim", "watt per kvadratmeter"},
	{"22", "Lufttemperatur", "medel, 1 gång per månad", "celsius"},
	{"26", "Lufttemperatur", "min, 2 gånger per dygn, kl 06 och 18", "celsius"},
	{"27", "Lufttemperatur", "max, 2 gånger per dygn, kl 06 och 18", "celsius"},
	{"19", "Lufttemperatur", "min, 1 gång per dygn", "celsius"},
	{"1", "Lufttemperatur", "momentanvärde, 1 gång/tim", "celsius"},
	{"2", "Lufttemperatur", "medelvärde 1 dygn, 1 gång/dygn, kl 00", "celsius"},
	{"20", "Lufttemperatur", "max, 1 gång per dygn", "celsius"},
	{"9", "Lufttryck reducerat havsytans nivå", "vid havsytans nivå, momentanvärde, 1 gång/tim", "hektopascal"},
	{"24", "Långvågs-Irradians", "Långvågsstrålning, medel 1 timme, varje timme", "watt per kvadratmeter"},
	{"40", "Markens tillstånd", "momentanvärde, 1 gång/dygn, kl 06", "kod"},
	{"25", "Max av MedelVindhastighet", "maximum av medelvärde 10 min, under 3 timmar, 1 gång/tim", "meter per sekund"},
	{"28", "Molnbas", "lägsta molnlager, momentanvärde, 1 gång/tim", "meter"},
	{"30", "Molnbas", "andra molnlager, momentanvärde, 1 gång/tim", "meter"},
	{"32", "Molnbas", "tredje molnlager, momentanvärde, 1 gång/tim", "meter"},
	{"34", "Molnbas", "fjärde molnlager, momentanvärde, 1 gång/tim", "meter"},
	{"36", "Molnbas", "lägsta molnbas, momentanvärde, 1 gång/tim", "meter"},
	{"37", "Molnbas", "lägsta molnbas, min under 15 min, 1 gång/tim", "meter"},
	{"29", "Molnmängd", "lägsta molnlager, momentanvärde, 1 gång/tim", "kod"},
	{"31", "Molnmängd", "andra molnlager, momentanvärde, 1 gång/tim", "kod"},
	{"33", "Molnmängd", "tredje molnlager, momentanvärde, 1 gång/tim", "kod"},
	{"35", "Molnmängd", "fjärde molnlager, momentanvärde, 1 gång/tim", "kod"},
	{"17", "Nederbörd", "2 gånger/dygn, kl 06 och 18", "kod"},
	{"18", "Nederbörd", "1 gång/dygn, kl 18", "kod"},
	{"15", "Nederbördsintensitet", "max under 15 min, 4 gånger/tim", "millimeter per sekund"},
	{"38", "Nederbördsintensitet", "max av medel under 15 min, 4 gånger/tim", "millimeter per sekund"},
	{"23", "Nederbördsmängd", "summa, 1 gång per månad", "millimeter"},
	{"14", "Nederbördsmängd", "summa 15 min, 4 gånger/tim", "millimeter"},
	{"5", "Nederbördsmängd", "summa 1 dygn, 1 gång/dygn, kl 06", "millimeter"},
	{"7", "Nederbördsmängd", "summa 1 timme, 1 gång/tim", "millimeter"},
	{"6", "Relativ Luftfuktighet", "momentanvärde, 1 gång/tim", "procent"},
	{"13", "Rådande väder", "momentanvärde, 1 gång/tim resp 8 gånger/dygn", "kod"},
	{"12", "Sikt", "momentanvärde, 1 gång/tim", "meter"},
	{"8", "Snödjup", "momentanvärde, 1 gång/dygn, kl 06", "meter"},
	{"10", "Solskenstid", "summa 1 timme, 1 gång/tim", "sekund"},
	{"16", "Total molnmängd", "momentanvärde, 1 gång/tim", "procent"},
	{"4", "Vindhastighet", "medelvärde 10 min, 1 gång/tim", "meter per sekund"},
	{"3", "Vindriktning", "medelvärde 10 min, 1 gång/tim", "grader"},
}

var parameters = func() map[string]Parameter {
	m := make(map[string]Parameter, len(parameterList))
	for _, p := range parameterList {
		m[p.ID] = p
	}
	return m
}()

// LookupParameter returns the catalog entry for id.
func LookupParameter(id string) (Parameter, error) {
	p, ok := parameters[id]
	if !ok {
		return Parameter{}, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	return p, nil
}

// Parameters returns the catalog ordered by numeric id.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameterList))
	copy(out, parameterList)
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a < b
	})
	return out
}
