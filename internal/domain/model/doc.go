// Пакет model — доменные модели портала CleanCity.
package model
