// Package btc содержит чистые функции без ввода-вывода: поиск bitcoin-адреса в
// произвольном тексте и форматирование баланса для ответа пользователю.
package btc
