package btc

import "regexp"

// Одно выражение на все три вида адресов:
//   - bc1… (bech32/bech32m, 8..87 символов данных) и bc0… фиксированной длины 39/59;
//   - 1…/3… (base58, P2PKH и P2SH), 25..35 символов после префикса.
//
// Контрольная сумма не проверяется, только форма.
//
// Границы слова заданы явно: \b в RE2 знает только ASCII, а адрес,
// приклеенный к любой букве или цифре (включая é, я), адресом не считается.
var reAddress = regexp.MustCompile(
	`(?:^|[^\pL\pM\pN\p{Pc}])(` +
		`bc(?:0(?:[ac-hj-np-z02-9]{39}|[ac-hj-np-z02-9]{59})|1[ac-hj-np-z02-9]{8,87})` +
		`|[13][a-km-zA-HJ-NP-Z1-9]{25,35}` +
		`)(?:$|[^\pL\pM\pN\p{Pc}])`)

// ExtractAddress возвращает первый найденный в тексте bitcoin-адрес.
// Если адресов несколько, берётся самый левый; остальные игнорируются.
func ExtractAddress(text string) (string, bool) {
	m := reAddress.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
