package config

//? The URL path must match the references written by the upload pipeline

const UploadsUrlPath = "/uploads/"
