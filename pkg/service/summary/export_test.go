package summary

var FieldSchema = fieldSchema
