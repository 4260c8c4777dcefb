package service

var MapSendError = mapSendError
